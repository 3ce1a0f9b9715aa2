package security

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUsernameFromClaims(t *testing.T) {
	username, err := GetUsernameFromClaims(jwt.MapClaims{"preferred_username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = GetUsernameFromClaims(jwt.MapClaims{})
	assert.Error(t, err)

	_, err = GetUsernameFromClaims(jwt.MapClaims{"preferred_username": ""})
	assert.Error(t, err)

	_, err = GetUsernameFromClaims(jwt.MapClaims{"preferred_username": 42})
	assert.Error(t, err)
}

func TestGetGroupsFromClaims(t *testing.T) {
	groups := GetGroupsFromClaims(jwt.MapClaims{"groups": []interface{}{"rtp", "members"}})
	assert.Equal(t, []string{"rtp", "members"}, groups)

	assert.Nil(t, GetGroupsFromClaims(jwt.MapClaims{}))
	assert.Nil(t, GetGroupsFromClaims(jwt.MapClaims{"groups": "rtp"}))

	// non-string entries are skipped
	groups = GetGroupsFromClaims(jwt.MapClaims{"groups": []interface{}{"ctf", 7}})
	assert.Equal(t, []string{"ctf"}, groups)
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin([]string{"rtp"}))
	assert.True(t, IsAdmin([]string{"members", "ctf"}))
	assert.False(t, IsAdmin([]string{"members"}))
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAdmin([]string{"RTP"}))
}
