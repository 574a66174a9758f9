package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"tailscale.com/client/tailscale/apitype"
)

type contextKey string

const userInfoKey contextKey = "user-info"

// UserInfo identifies the caller of a request.
type UserInfo struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// WithUser stores info on ctx.
func WithUser(ctx context.Context, info UserInfo) context.Context {
	return context.WithValue(ctx, userInfoKey, info)
}

// UserFromContext returns the caller stored by an identity middleware.
func UserFromContext(ctx context.Context) (UserInfo, bool) {
	info, ok := ctx.Value(userInfoKey).(UserInfo)
	return info, ok && info.ID != ""
}

// UserIDFromContext returns the caller's ID, or "" when there is none.
func UserIDFromContext(ctx context.Context) string {
	info, _ := UserFromContext(ctx)
	return info.ID
}

// mustUser extracts the caller or writes a 401.
func mustUser(w http.ResponseWriter, r *http.Request) (UserInfo, bool) {
	info, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no identity"})
		return UserInfo{}, false
	}
	return info, true
}

// DevIdentity returns middleware that attributes every request to login,
// for local development without Tailscale or tokens.
func DevIdentity(login string) func(http.Handler) http.Handler {
	info := UserInfo{ID: login, Login: login, DisplayName: "Local Dev User"}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), info)))
		})
	}
}

// JWTConfig holds HS256 verification parameters.
type JWTConfig struct {
	Secret string
	Issuer string
}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// parseToken validates an HS256 token and returns the caller it names.
func parseToken(raw string, cfg JWTConfig) (UserInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UserInfo{}, errMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return UserInfo{}, fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	name, _ := claims["name"].(string)
	return UserInfo{ID: sub, Login: sub, DisplayName: name}, nil
}

// JWTAuth returns middleware that requires an HS256 bearer token. The token's
// subject becomes the user ID.
func JWTAuth(cfg JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				token = ""
			}
			info, err := parseToken(token, cfg)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), info)))
		})
	}
}

// WhoIser resolves the tailnet identity behind a remote address.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// UserResolver maps a login to a stable user ID.
type UserResolver interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (string, error)
}

// TailscaleIdentity returns middleware that identifies callers by their
// Tailscale login. Unknown logins are registered on first sight.
func TailscaleIdentity(lc WhoIser, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := lc.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil || who == nil || who.UserProfile == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown tailnet identity"})
				return
			}
			login := who.UserProfile.LoginName
			id, err := users.GetOrCreateUser(r.Context(), login, who.UserProfile.DisplayName)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			info := UserInfo{ID: id, Login: login, DisplayName: who.UserProfile.DisplayName}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), info)))
		})
	}
}
