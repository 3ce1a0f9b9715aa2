package model

// UserScore is the derived (score, solved-flag-count) pair for one user.
// Never persisted; always recomputed from the solve and purchase ledgers.
type UserScore struct {
	Score       int `json:"score"`
	SolvedFlags int `json:"solved_flags"`
}

type ScoreboardEntry struct {
	Username    string `json:"username"`
	Score       int    `json:"score"`
	SolvedFlags int    `json:"solved_flags"`
}
