package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginEvent records the terminal outcome of one submission.
type LoginEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Email      string    `json:"email"`
	Status     Status    `json:"status"`
	Reason     Reason    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
