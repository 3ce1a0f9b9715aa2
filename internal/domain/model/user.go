package model

// Userinfo is the identity resolved from the bearer token.
type Userinfo struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
	Admin    bool     `json:"admin"`
}
