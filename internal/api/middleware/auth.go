package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/service/auth"
)

// Service token headers set by the access proxy in front of the API.
const (
	HeaderClientID     = "CF-Access-Client-Id"
	HeaderClientSecret = "CF-Access-Client-Secret"
)

// ServiceTokens verifies a client id / secret pair and returns the token name.
type ServiceTokens interface {
	Verify(clientID, secret string) (string, error)
}

// AuthMiddleware authenticates requests with a service token or a bearer JWT.
type AuthMiddleware struct {
	jwtService auth.JWTService
	tokens     ServiceTokens
	logger     *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. tokens may be nil when no
// service tokens are configured.
func NewAuthMiddleware(jwtService auth.JWTService, tokens ServiceTokens, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		tokens:     tokens,
		logger:     logger.With(slog.String("component", "auth_middleware")),
	}
}

// Authenticate stores the caller's shared.Principal in the request context.
// Service token headers take precedence over the Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clientID := r.Header.Get(HeaderClientID); clientID != "" {
			m.serviceToken(w, r, next, clientID)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Authorization header required",
				auth.ErrMissingToken, shared.WithElevatedLogLevel())
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Token expired", err)
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrMissingToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid token", err,
					shared.WithElevatedLogLevel())
			default:
				logger.FromContextOrDefault(r.Context(), m.logger).Error("failed to validate token",
					redact.ErrorAttr(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := shared.WithPrincipal(r.Context(), shared.Principal{
			Kind:       shared.PrincipalIdentity,
			IdentityID: claims.IdentityID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) serviceToken(w http.ResponseWriter, r *http.Request, next http.Handler, clientID string) {
	if m.tokens == nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid service token",
			auth.ErrInvalidServiceToken, shared.WithElevatedLogLevel())
		return
	}
	name, err := m.tokens.Verify(clientID, r.Header.Get(HeaderClientSecret))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid service token", err,
			shared.WithElevatedLogLevel())
		return
	}

	logger.FromContextOrDefault(r.Context(), m.logger).Debug("service token accepted",
		slog.String("token", name))
	ctx := shared.WithPrincipal(r.Context(), shared.Principal{Kind: shared.PrincipalService, Name: name})
	next.ServeHTTP(w, r.WithContext(ctx))
}
