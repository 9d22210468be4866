package models

// Role константы ролей пользователей
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// ValidRoles список валидных ролей при регистрации.
// Админов регистрация не создаёт.
var ValidRoles = map[string]struct{}{
	RoleClient:     {},
	RoleFreelancer: {},
}

// RatingType направление оценки
const (
	RatingTypeClientToFreelancer = "client_to_freelancer"
	RatingTypeFreelancerToClient = "freelancer_to_client"
)

// OTPPurpose назначение одноразового кода
const (
	OTPPurposeEmailVerify   = "email_verify"
	OTPPurposePasswordReset = "password_reset"
)

// ValidOTPPurposes список валидных назначений кодов
var ValidOTPPurposes = map[string]struct{}{
	OTPPurposeEmailVerify:   {},
	OTPPurposePasswordReset: {},
}

// MeetingRequestStatus константы статусов запроса встречи
const (
	MeetingRequestStatusPending  = "pending"
	MeetingRequestStatusAccepted = "accepted"
	MeetingRequestStatusDeclined = "declined"
)

// AdminPermission строки прав администратора
const (
	AdminPermissionModerateProjects = "projects:moderate"
	AdminPermissionManageUsers      = "users:manage"
)
