package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingRequest запрос на встречу по отклику.
// Создаётся только для approved откликов; при принятии порождает Meeting.
type MeetingRequest struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ApplicationID uuid.UUID `db:"application_id" json:"application_id"`
	RequestedBy   uuid.UUID `db:"requested_by" json:"requested_by"`
	ProposedAt    time.Time `db:"proposed_at" json:"proposed_at"`
	Note          *string   `db:"note" json:"note,omitempty"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Meeting назначенная встреча.
type Meeting struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ApplicationID uuid.UUID  `db:"application_id" json:"application_id"`
	RequestID     *uuid.UUID `db:"request_id" json:"request_id,omitempty"`
	ScheduledAt   time.Time  `db:"scheduled_at" json:"scheduled_at"`
	MeetingURL    *string    `db:"meeting_url" json:"meeting_url,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
