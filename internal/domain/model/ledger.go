package model

import "time"

// Solve records that a user has submitted the correct secret for a flag.
// (flag_id, username) is the primary key; at most one row per pair.
type Solve struct {
	FlagID    string    `json:"flag_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// HintPurchase records that a user has paid to unlock a hint.
// (hint_id, username) is the primary key; at most one row per pair.
type HintPurchase struct {
	HintID    string    `json:"hint_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
