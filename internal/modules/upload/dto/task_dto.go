package dto

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Snapshot is a point-in-time view of an upload task.
type Snapshot struct {
	ID         uuid.UUID  `json:"id"`
	Owner      uuid.UUID  `json:"owner"`
	State      State      `json:"state"`
	Progress   float64    `json:"progress"`
	Percent    int        `json:"percent"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	ResultID   *uuid.UUID `json:"result_id,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (s Snapshot) Terminal() bool {
	return s.State != StateRunning
}
