package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating направленная оценка участника проекта.
// Уникальность на тройке (project_id, rater_id, rated_id).
type Rating struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ProjectID uuid.UUID `db:"project_id" json:"project_id"`
	RaterID   uuid.UUID `db:"rater_id" json:"rater_id"`
	RatedID   uuid.UUID `db:"rated_id" json:"rated_id"`
	Type      string    `db:"type" json:"type"`
	Score     int       `db:"score" json:"score"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RatingPage страница оценок пользователя.
type RatingPage struct {
	Ratings  []Rating `json:"ratings"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}
