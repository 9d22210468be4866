package models

// ProjectStatus статус жизненного цикла проекта.
type ProjectStatus string

const (
	ProjectStatusAdminVerification ProjectStatus = "admin_verification"
	ProjectStatusOpen              ProjectStatus = "open"
	ProjectStatusAssigned          ProjectStatus = "assigned"
	ProjectStatusPendingCompletion ProjectStatus = "pending_completion"
	ProjectStatusCompleted         ProjectStatus = "completed"
	ProjectStatusCancelled         ProjectStatus = "cancelled"
)

// AllProjectStatuses перечисляет все статусы проекта. Порядок фиксирован:
// от него зависит перечисление ключей кэша.
var AllProjectStatuses = []ProjectStatus{
	ProjectStatusAdminVerification,
	ProjectStatusOpen,
	ProjectStatusAssigned,
	ProjectStatusPendingCompletion,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// projectTransitions - единственная таблица допустимых переходов.
// Любой переход, которого здесь нет, отклоняется с конфликтом.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusAdminVerification: {ProjectStatusOpen, ProjectStatusCancelled},
	ProjectStatusOpen:              {ProjectStatusAssigned, ProjectStatusCancelled},
	ProjectStatusAssigned:          {ProjectStatusPendingCompletion},
	ProjectStatusPendingCompletion: {ProjectStatusCompleted, ProjectStatusAssigned},
	ProjectStatusCompleted:         {},
	ProjectStatusCancelled:         {},
}

func (s ProjectStatus) IsValid() bool {
	_, ok := projectTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет ни одного перехода.
func (s ProjectStatus) IsTerminal() bool {
	allowed, ok := projectTransitions[s]
	return ok && len(allowed) == 0
}

// CanTransitionTo проверяет переход по таблице.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HasAssignee сообщает, что в данном статусе у проекта обязан быть исполнитель.
func (s ProjectStatus) HasAssignee() bool {
	switch s {
	case ProjectStatusAssigned, ProjectStatusPendingCompletion, ProjectStatusCompleted:
		return true
	}
	return false
}

// ApplicationStatus статус отклика фрилансера.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// AllApplicationStatuses перечисляет все статусы отклика в фиксированном порядке.
var AllApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusApproved,
	ApplicationStatusRejected,
}

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// IsTerminal: approved и rejected - конечные состояния отклика.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}
