package security

import (
	"errors"

	"github.com/harmonherring/CTF-API/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Tokens are minted by the SSO provider; this service only verifies them
// and reads the identity claims.
var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// GetUsernameFromClaims reads the preferred_username claim the identity
// provider sets on every token.
func GetUsernameFromClaims(claims jwt.MapClaims) (string, error) {
	username, ok := claims["preferred_username"].(string)
	if !ok || username == "" {
		return "", errors.New("preferred_username claim is missing or not a string")
	}
	return username, nil
}

// GetGroupsFromClaims reads the groups claim. A token without groups is
// still valid; the user just has no elevated privileges.
func GetGroupsFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["groups"].([]interface{})
	if !ok {
		return nil
	}
	groups := make([]string, 0, len(raw))
	for _, g := range raw {
		if s, ok := g.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups
}

// IsAdmin is the single place administrator membership is decided.
// Members of the "rtp" or "ctf" groups are administrators; every other
// group is ignored.
func IsAdmin(groups []string) bool {
	for _, group := range groups {
		if group == "rtp" || group == "ctf" {
			return true
		}
	}
	return false
}
