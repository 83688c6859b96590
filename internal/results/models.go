package results

import "time"

type Result struct {
	ID         string      `json:"id"`
	RaceID     string      `json:"race_id"`
	Reason     string      `json:"reason"`
	EndedAt    time.Time   `json:"ended_at"`
	Placements []Placement `json:"placements"`
}

type Placement struct {
	ParticipantID string     `json:"participant_id"`
	Rank          int        `json:"rank"`
	Progress      float64    `json:"progress"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
