package dto

import "time"

// RegisterRequest represents the signup payload
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Role        string `json:"role" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerifyEmailRequest carries the email verification code
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// PasswordResetRequest starts a password reset flow
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetConfirmRequest checks the reset code
type PasswordResetConfirmRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// PasswordResetCompleteRequest sets the new password
type PasswordResetCompleteRequest struct {
	Email       string `json:"email" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// CreateProjectRequest represents the request to create a project
type CreateProjectRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description" binding:"required"`
	BudgetMin      *float64   `json:"budget_min"`
	BudgetMax      *float64   `json:"budget_max"`
	SkillsRequired []string   `json:"skills_required"`
	DeadlineAt     *time.Time `json:"deadline_at"`
}

// UpdateProjectRequest represents the request to update a project
type UpdateProjectRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description" binding:"required"`
	BudgetMin      *float64   `json:"budget_min"`
	BudgetMax      *float64   `json:"budget_max"`
	SkillsRequired []string   `json:"skills_required"`
	DeadlineAt     *time.Time `json:"deadline_at"`
}

// RejectProjectRequest carries the moderation rejection reason
type RejectProjectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectCompletionRequest carries the required completion rejection reason
type RejectCompletionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateApplicationRequest represents the request to apply to a project
type CreateApplicationRequest struct {
	CoverLetter    string   `json:"cover_letter" binding:"required"`
	ProposedAmount *float64 `json:"proposed_amount"`
}

// CreateRatingRequest represents the request to rate a project participant
type CreateRatingRequest struct {
	ProjectID string  `json:"project_id" binding:"required"`
	Score     int     `json:"score" binding:"required"`
	Comment   *string `json:"comment"`
}

// UpdateRatingRequest represents the request to change an own rating
type UpdateRatingRequest struct {
	Score   int     `json:"score" binding:"required"`
	Comment *string `json:"comment"`
}

// UpdateFreelancerProfileRequest represents a freelancer profile update
type UpdateFreelancerProfileRequest struct {
	DisplayName string   `json:"display_name" binding:"required"`
	Bio         *string  `json:"bio"`
	Skills      []string `json:"skills"`
	HourlyRate  *float64 `json:"hourly_rate"`
	Available   bool     `json:"available"`
}

// UpdateClientProfileRequest represents a client profile update
type UpdateClientProfileRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	CompanyName *string `json:"company_name"`
	Bio         *string `json:"bio"`
}

// CreateMeetingRequest represents the request to propose a meeting
type CreateMeetingRequest struct {
	ProposedAt time.Time `json:"proposed_at" binding:"required"`
	Note       *string   `json:"note"`
}

// RespondMeetingRequest represents the counterparty's decision
type RespondMeetingRequest struct {
	Accept     *bool   `json:"accept" binding:"required"`
	MeetingURL *string `json:"meeting_url"`
}

// SetUserActiveRequest toggles an account's active flag
type SetUserActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
