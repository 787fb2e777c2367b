package auth

import (
	"fmt"

	"github.com/phrazzld/mission-control/internal/config"
)

// ServiceTokenVerifier checks CF-Access style client id / secret pairs against
// the configured bcrypt hashes.
type ServiceTokenVerifier struct {
	tokens   map[string]config.ServiceToken
	verifier PasswordVerifier
}

// NewServiceTokenVerifier indexes tokens by client id. Duplicate ids are rejected.
func NewServiceTokenVerifier(tokens []config.ServiceToken, verifier PasswordVerifier) (*ServiceTokenVerifier, error) {
	if verifier == nil {
		verifier = NewBcryptVerifier()
	}
	byID := make(map[string]config.ServiceToken, len(tokens))
	for _, t := range tokens {
		if _, dup := byID[t.ClientID]; dup {
			return nil, fmt.Errorf("duplicate service token client id %q", t.ClientID)
		}
		byID[t.ClientID] = t
	}
	return &ServiceTokenVerifier{tokens: byID, verifier: verifier}, nil
}

// Len returns the number of configured tokens.
func (v *ServiceTokenVerifier) Len() int {
	return len(v.tokens)
}

// Verify returns the token's name when secret matches the hash stored for clientID.
func (v *ServiceTokenVerifier) Verify(clientID, secret string) (string, error) {
	t, ok := v.tokens[clientID]
	if !ok || secret == "" {
		return "", ErrInvalidServiceToken
	}
	if err := v.verifier.Compare(t.SecretHash, secret); err != nil {
		return "", ErrInvalidServiceToken
	}
	return t.Name, nil
}
