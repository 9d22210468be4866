package models

import (
	"time"

	"github.com/google/uuid"
)

// Application связывает фрилансера с проектом.
// Инварианты: не более одного отклика на пару (project_id, freelancer_id);
// не более одного approved отклика на проект, и он существует тогда и только
// тогда, когда проект назначен или дальше по жизненному циклу.
type Application struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	ProjectID      uuid.UUID         `db:"project_id" json:"project_id"`
	FreelancerID   uuid.UUID         `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter    string            `db:"cover_letter" json:"cover_letter"`
	ProposedAmount *float64          `db:"proposed_amount" json:"proposed_amount,omitempty"`
	Status         ApplicationStatus `db:"status" json:"status"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationPage страница списка откликов.
type ApplicationPage struct {
	Applications []Application `json:"applications"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
}
