package mention

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

// Sigil marks the start of a mention.
const Sigil = "@"

var (
	tokenPattern = regexp.MustCompile(`@(\w+[-\w]*)`)

	// Matches an already highlighted token first so Highlight leaves it intact.
	highlightPattern = regexp.MustCompile(`<span class="mention">@\w+[-\w]*</span>|@\w+[-\w]*`)
)

const highlightOpen = `<span class="mention">`

// Extract returns the mention tokens in text without the sigil, in order of first
// appearance and without duplicates. It returns nil when text has no mentions.
func Extract(text string) []string {
	if !Contains(text) {
		return nil
	}

	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tokens = append(tokens, name)
	}
	return tokens
}

// Contains reports whether text contains the mention sigil at all.
func Contains(text string) bool {
	return strings.Contains(text, Sigil)
}

// Highlight wraps every mention token in a span with the "mention" class.
// Applying it twice gives the same result as applying it once.
func Highlight(text string) string {
	if !Contains(text) {
		return text
	}
	return highlightPattern.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, highlightOpen) {
			return match
		}
		return highlightOpen + match + "</span>"
	})
}

// IdentityLookup resolves exact display names to identities. Names that do not
// match are simply absent from the result.
type IdentityLookup interface {
	FindByNames(ctx context.Context, names []string) ([]domain.Identity, error)
}

// Resolve maps tokens to identities. Unknown names are dropped and lookup errors
// are logged and swallowed, so the result may be empty but never fails.
func Resolve(ctx context.Context, lookup IdentityLookup, tokens []string) []domain.Identity {
	if lookup == nil || len(tokens) == 0 {
		return nil
	}

	identities, err := lookup.FindByNames(ctx, tokens)
	if err != nil {
		logger.FromContextOrDefault(ctx, slog.Default()).Warn("mention resolution failed",
			slog.Int("token_count", len(tokens)),
			redact.ErrorAttr(err))
		return nil
	}
	return identities
}
