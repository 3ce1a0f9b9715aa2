package model

import "time"

type Flag struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	PointValue  int       `json:"point_value"`
	Flag        string    `json:"flag"`
	CreatedAt   time.Time `json:"created_at"`
}

type Hint struct {
	ID        string    `json:"id"`
	FlagID    string    `json:"flag_id"`
	Cost      int       `json:"cost"`
	Hint      string    `json:"hint"`
	CreatedAt time.Time `json:"created_at"`
}

// FlagView masks the secret for callers who have not solved the flag.
type FlagView struct {
	ID          string     `json:"id"`
	ChallengeID string     `json:"challenge_id"`
	PointValue  int        `json:"point_value"`
	Flag        *string    `json:"flag,omitempty"`
	Solved      bool       `json:"solved"`
	Hints       []HintView `json:"hints,omitempty"`
}

// HintView masks the hint text for callers who have not purchased it.
type HintView struct {
	ID        string  `json:"id"`
	FlagID    string  `json:"flag_id"`
	Cost      int     `json:"cost"`
	Hint      *string `json:"hint,omitempty"`
	Purchased bool    `json:"purchased"`
}

func (f *Flag) View(solved bool) FlagView {
	v := FlagView{
		ID:          f.ID,
		ChallengeID: f.ChallengeID,
		PointValue:  f.PointValue,
		Solved:      solved,
	}
	if solved {
		secret := f.Flag
		v.Flag = &secret
	}
	return v
}

func (h *Hint) View(purchased bool) HintView {
	v := HintView{
		ID:        h.ID,
		FlagID:    h.FlagID,
		Cost:      h.Cost,
		Purchased: purchased,
	}
	if purchased {
		text := h.Hint
		v.Hint = &text
	}
	return v
}
