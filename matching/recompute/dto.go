package recompute

import "time"

// TriggerResponse - outcome of a trigger request
type TriggerResponse struct {
	UserID   string `json:"user_id"`
	Enqueued bool   `json:"enqueued"`
}

// StatusResponse - public view of a user's recompute state
type StatusResponse struct {
	State            State      `json:"state"`
	Pending          bool       `json:"pending"`
	LastRecomputedAt *time.Time `json:"last_recomputed_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	Attempts         int        `json:"attempts"`
}

// SweepResponse - outcome of a sweep pass
type SweepResponse struct {
	Scanned   int `json:"scanned"`
	Triggered int `json:"triggered"`
}

func (s *UserState) ToResponse() StatusResponse {
	return StatusResponse{
		State:            s.State,
		Pending:          s.Pending,
		LastRecomputedAt: s.LastRecomputedAt,
		LastError:        s.LastError,
		Attempts:         s.Attempts,
	}
}
