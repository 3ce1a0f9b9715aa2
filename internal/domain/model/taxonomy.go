package model

type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Difficulty struct {
	Name string `json:"name"`
}

type ChallengeTag struct {
	ChallengeID string `json:"challenge_id"`
	Tag         string `json:"tag"`
}
