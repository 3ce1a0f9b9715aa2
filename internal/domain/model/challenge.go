package model

import "time"

type Challenge struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Author         string    `json:"author"`
	Submitter      string    `json:"submitter"`
	CategoryName   string    `json:"category"`
	DifficultyName string    `json:"difficulty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Tags           []string  `json:"tags,omitempty"`
}

// ChallengeDetail is the per-caller view of a challenge: flag secrets are
// present only for flags the caller has solved, hint text only for hints
// the caller has purchased.
type ChallengeDetail struct {
	Challenge
	Flags []FlagView `json:"flags"`
}
