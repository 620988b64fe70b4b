package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Mode selects how RequireCaller resolves the caller's user id.
type Mode string

const (
	// ModeHeader trusts the x-user-id request header. It is a claim, not a
	// credential: any client can send any id. Kept for the existing web
	// client, which sends the header and never the token.
	ModeHeader Mode = "header"
	// ModeToken requires "Authorization: Bearer <jwt>" and takes the user id
	// from the verified token.
	ModeToken Mode = "token"
)

// UserIDHeader is the header carrying the caller's claimed user id.
const UserIDHeader = "x-user-id"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key any
// package that knows the string could read or shadow the value. Only this
// package can create a contextKey, so only this package can read or write
// the caller id.
type contextKey string

const userIDKey contextKey = "userID"

// RequireCaller is a middleware that resolves the caller's user id on
// protected routes and stores it in the request context.
//
// Header mode: a missing, non-numeric or non-positive x-user-id is a 400
// "Missing x-user-id header".
//
// Token mode: a missing or invalid bearer token is a 401. If the request also
// carries x-user-id it must match the token's subject, else 401.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it.
// Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireCaller(mode Mode, tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID int64

			switch mode {
			case ModeToken:
				id, ok := callerFromToken(r, tokens)
				if !ok {
					writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
					return
				}
				userID = id

			default:
				id, ok := parseUserID(r.Header.Get(UserIDHeader))
				if !ok {
					writeAuthError(w, http.StatusBadRequest, "validation_error", "Missing x-user-id header")
					return
				}
				userID = id
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying the caller's user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the caller's user id from the request context.
//
// Returns (0, false) when RequireCaller did not run for this request.
//
// Usage in handlers:
//
//	userID, ok := auth.UserIDFromContext(r.Context())
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// callerFromToken validates the bearer token and cross-checks x-user-id.
func callerFromToken(r *http.Request, tokens *TokenService) (int64, bool) {
	if tokens == nil {
		return 0, false
	}

	header := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return 0, false
	}

	userID, err := tokens.Validate(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}

	if claimed := r.Header.Get(UserIDHeader); claimed != "" {
		id, ok := parseUserID(claimed)
		if !ok || id != userID {
			return 0, false
		}
	}

	return userID, true
}

func parseUserID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeAuthError writes the same {"error","message"} body the handlers use.
func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
