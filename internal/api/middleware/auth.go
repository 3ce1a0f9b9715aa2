package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UsernameCtxKey contextKey = "username"
	GroupsCtxKey   contextKey = "groups"
)

// Authenticator resolves the caller's identity from the verified token
// and stores username and groups in the request context. Every core
// operation downstream takes them as explicit arguments; nothing reads
// ambient session state.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context()) // Extracts token from Authorization header

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		username, err := security.GetUsernameFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		groups := security.GetGroupsFromClaims(claims)

		ctx := context.WithValue(r.Context(), UsernameCtxKey, username)
		ctx = context.WithValue(ctx, GroupsCtxKey, groups)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly guards routes that only "rtp" or "ctf" group members may use.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		groups, ok := r.Context().Value(GroupsCtxKey).([]string)
		if !ok || !security.IsAdmin(groups) {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper to get the username from context
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameCtxKey).(string)
	return username, ok
}

// Helper to get the group list from context
func GetGroupsFromContext(ctx context.Context) ([]string, bool) {
	groups, ok := ctx.Value(GroupsCtxKey).([]string)
	return groups, ok
}
