package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Project описывает проект, размещённый клиентом.
// Инвариант: AssignedTo == nil тогда и только тогда, когда статус
// admin_verification, open или cancelled.
type Project struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	ClientID       uuid.UUID      `db:"client_id" json:"client_id"`
	AssignedTo     *uuid.UUID     `db:"assigned_to" json:"assigned_to,omitempty"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	Status         ProjectStatus  `db:"status" json:"status"`
	BudgetMin      *float64       `db:"budget_min" json:"budget_min,omitempty"`
	BudgetMax      *float64       `db:"budget_max" json:"budget_max,omitempty"`
	SkillsRequired pq.StringArray `db:"skills_required" json:"skills_required"`
	RejectedReason *string        `db:"rejected_reason" json:"rejected_reason,omitempty"`
	DeadlineAt     *time.Time     `db:"deadline_at" json:"deadline_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ProjectPage страница списка проектов с общим количеством.
type ProjectPage struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
