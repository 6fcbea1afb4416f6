package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/attendance-tracker/internal/model"
)

// contextKey is unexported so only this package can read or write the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// TokenHeader is the dedicated request header that may carry the token.
const TokenHeader = "X-Access-Token"

// Messages returned to the caller when authentication fails.
const (
	MsgTokenNotProvided = "Token not provided"
	MsgTokenInvalid     = "Cannot decode given token"
)

// maxTokenBodyBytes caps how much of a request body is inspected for a token.
const maxTokenBodyBytes = 1 << 20

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// The token is looked up in this order:
//  1. the "token" field of a JSON or form-encoded request body
//  2. the "token" query parameter
//  3. the X-Access-Token header
//  4. an "Authorization: Bearer" header
//
// Missing or invalid tokens end the request with 401; the next handler is
// not called. On success the Identity is stored in the request context.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				writeUnauthorized(w, MsgTokenNotProvided)
				return
			}

			id, err := tokens.Validate(raw)
			if err != nil {
				logger.Warn("rejected access token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w, MsgTokenInvalid)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated caller.
// ok is false when the request did not pass through RequireAuth.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.UserID != ""
}

// WithIdentity returns a copy of ctx carrying id. Handlers under test use it
// to skip token handling.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func extractToken(r *http.Request) string {
	if tok := tokenFromBody(r); tok != "" {
		return tok
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if tok := r.Header.Get(TokenHeader); tok != "" {
		return tok
	}
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, tok, found := strings.Cut(authz, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return ""
}

// tokenFromBody reads the "token" body field without consuming the body:
// whatever was read is put back so the downstream handler can decode it.
// Form bodies are parsed here rather than by ParseForm, which ignores the
// body of a DELETE.
func tokenFromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBodyBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), r.Body))
	if err != nil || len(buf) == 0 {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(buf))
		if err != nil {
			return ""
		}
		return values.Get("token")
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(buf, &body); err != nil {
		return ""
	}
	return body.Token
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result":  0,
		"error":   "unauthorized",
		"message": message,
	})
}
