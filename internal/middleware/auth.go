package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"driftline/internal/config"
	"driftline/internal/domain"
)

// APIKeyLookup resolves a hashed API key to the principal name it
// authenticates as.
type APIKeyLookup interface {
	LookupPrincipalByAPIKeyHash(ctx context.Context, keyHash string) (string, error)
}

// Authenticator authenticates requests with a JWT Bearer token or an API key
// and stores the resolved principal in the request context. A Bearer token is
// authoritative when present: if it fails validation the request is rejected
// without falling back to the API key header.
type Authenticator struct {
	validator JWTValidator
	keys      APIKeyLookup
	cfg       config.AuthConfig
	admins    map[string]bool
	logger    *slog.Logger
}

// NewAuthenticator wires an Authenticator from the configured JWT validator
// and API key store. Either may be nil, which disables that scheme.
func NewAuthenticator(validator JWTValidator, keys APIKeyLookup, cfg config.AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[string]bool, len(cfg.AdminPrincipals))
	for _, name := range cfg.AdminPrincipals {
		admins[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return &Authenticator{validator: validator, keys: keys, cfg: cfg, admins: admins, logger: logger}
}

// Middleware returns the HTTP middleware enforcing authentication.
// Unauthorized requests get the JSON error envelope.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return a.MiddlewareWithFallback(func(w http.ResponseWriter, _ *http.Request) {
		writeUnauthorized(w)
	})
}

// MiddlewareWithFallback is Middleware with a custom unauthorized response,
// e.g. a redirect to the console login page for browser traffic.
func (a *Authenticator) MiddlewareWithFallback(onUnauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				principal, err := a.authenticateJWT(r.Context(), token)
				if err != nil {
					a.logger.Debug("jwt rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
					onUnauthorized(w, r)
					return
				}
				next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
				return
			}

			if key := r.Header.Get(a.apiKeyHeader()); key != "" && a.cfg.APIKeyEnabled && a.keys != nil {
				principal, err := a.authenticateAPIKey(r.Context(), key)
				if err != nil {
					a.logger.Debug("api key rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
					onUnauthorized(w, r)
					return
				}
				next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
				return
			}

			onUnauthorized(w, r)
		})
	}
}

func (a *Authenticator) authenticateJWT(ctx context.Context, token string) (domain.ContextPrincipal, error) {
	if a.validator == nil {
		return domain.ContextPrincipal{}, fmt.Errorf("jwt auth not configured")
	}
	claims, err := a.validator.Validate(ctx, token)
	if err != nil {
		return domain.ContextPrincipal{}, err
	}
	name := a.resolveDisplayName(claims)
	if name == "" {
		return domain.ContextPrincipal{}, fmt.Errorf("token carries no usable identity claim")
	}
	return domain.ContextPrincipal{
		Name:    name,
		IsAdmin: a.isAdmin(name, claims),
		Type:    "user",
	}, nil
}

func (a *Authenticator) authenticateAPIKey(ctx context.Context, rawKey string) (domain.ContextPrincipal, error) {
	name, err := a.keys.LookupPrincipalByAPIKeyHash(ctx, hashAPIKey(rawKey))
	if err != nil {
		return domain.ContextPrincipal{}, err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	return domain.ContextPrincipal{
		Name:    name,
		IsAdmin: a.admins[name],
		Type:    "service_principal",
	}, nil
}

// resolveDisplayName picks the principal name from the configured claim,
// falling back to preferred_username and then the token subject. Names are
// lowercased and trimmed so the same identity always compares equal.
func (a *Authenticator) resolveDisplayName(claims *JWTClaims) string {
	nameClaim := a.cfg.NameClaim
	if nameClaim == "" {
		nameClaim = "email"
	}
	name, _ := claims.Raw[nameClaim].(string)
	if name == "" {
		name, _ = claims.Raw["preferred_username"].(string)
	}
	if name == "" {
		name = claims.Subject
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// isAdmin grants admin when the token carries an admin=true claim or the
// resolved name is on the configured admin list.
func (a *Authenticator) isAdmin(name string, claims *JWTClaims) bool {
	if admin, ok := claims.Raw["admin"].(bool); ok && admin {
		return true
	}
	return a.admins[name]
}

func (a *Authenticator) apiKeyHeader() string {
	if a.cfg.APIKeyHeader != "" {
		return a.cfg.APIKeyHeader
	}
	return "X-API-Key"
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

// hashAPIKey computes the storage hash for an API key: SHA-256 hex of the
// raw key. Must stay in sync with how keys are minted.
func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized: provide a valid JWT Bearer token or API key")
}

// writeJSONError emits the admin API error envelope.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message})
}
