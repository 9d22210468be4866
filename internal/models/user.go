package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User описывает сущность пользователя платформы.
// Роль неизменяема после создания; is_active=false блокирует все мутации.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	Username      string     `db:"username" json:"username"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          string     `db:"role" json:"role"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// FreelancerProfile расширение пользователя с ролью freelancer.
// Ratings пересчитывается агрегатором, напрямую из запроса не пишется.
type FreelancerProfile struct {
	UserID            uuid.UUID      `db:"user_id" json:"user_id"`
	DisplayName       string         `db:"display_name" json:"display_name"`
	Bio               *string        `db:"bio" json:"bio,omitempty"`
	Skills            pq.StringArray `db:"skills" json:"skills"`
	HourlyRate        *float64       `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Available         bool           `db:"available" json:"available"`
	Ratings           float64        `db:"ratings" json:"ratings"`
	ProjectsCompleted int            `db:"projects_completed" json:"projects_completed"`
	PhotoID           *uuid.UUID     `db:"photo_id" json:"photo_id,omitempty"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// ClientProfile расширение пользователя с ролью client.
type ClientProfile struct {
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	DisplayName    string     `db:"display_name" json:"display_name"`
	CompanyName    *string    `db:"company_name" json:"company_name,omitempty"`
	Bio            *string    `db:"bio" json:"bio,omitempty"`
	Ratings        float64    `db:"ratings" json:"ratings"`
	ProjectsPosted int        `db:"projects_posted" json:"projects_posted"`
	PhotoID        *uuid.UUID `db:"photo_id" json:"photo_id,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Admin содержит набор прав администратора.
type Admin struct {
	UserID      uuid.UUID      `db:"user_id" json:"user_id"`
	Permissions pq.StringArray `db:"permissions" json:"permissions"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// HasPermission проверяет наличие права. Простое членство в множестве.
func (a *Admin) HasPermission(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PlatformStats агрегированная статистика платформы для публичной витрины.
type PlatformStats struct {
	TotalClients       int `db:"total_clients" json:"total_clients"`
	TotalFreelancers   int `db:"total_freelancers" json:"total_freelancers"`
	OpenProjects       int `db:"open_projects" json:"open_projects"`
	CompletedProjects  int `db:"completed_projects" json:"completed_projects"`
	TotalApplications  int `db:"total_applications" json:"total_applications"`
	TotalRatings       int `db:"total_ratings" json:"total_ratings"`
}
