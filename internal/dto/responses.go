package dto

import (
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse is the standard success envelope
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse carries the user together with issued tokens
type AuthResponse struct {
	User   *models.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// MeetingsResponse groups meeting requests with scheduled meetings
type MeetingsResponse struct {
	Requests []models.MeetingRequest `json:"requests"`
	Meetings []models.Meeting        `json:"meetings"`
}
