package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
)

// MeetingRepo операции репозитория встреч, нужные сервису.
type MeetingRepo interface {
	CreateRequest(ctx context.Context, req *models.MeetingRequest) error
	GetRequestByID(ctx context.Context, id uuid.UUID) (*models.MeetingRequest, error)
	Accept(ctx context.Context, req *models.MeetingRequest, meetingURL *string) (*models.Meeting, error)
	Decline(ctx context.Context, requestID uuid.UUID) error
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.MeetingRequest, []models.Meeting, error)
}

// ApplicationRepoForMeeting доступ к откликам для guard-условий встречи.
type ApplicationRepoForMeeting interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
}

// applicationMeetings кэшируемое представление встреч отклика.
type applicationMeetings struct {
	Requests []models.MeetingRequest `json:"requests"`
	Meetings []models.Meeting        `json:"meetings"`
}

// MeetingService планирует встречи между участниками одобренного отклика.
type MeetingService struct {
	meetings     MeetingRepo
	applications ApplicationRepoForMeeting
	projects     ProjectRepoForApplication
	users        UserRepoForProject
	store        *cache.Store
	planner      Invalidator
}

// NewMeetingService создаёт сервис встреч.
func NewMeetingService(meetings MeetingRepo, applications ApplicationRepoForMeeting, projects ProjectRepoForApplication, users UserRepoForProject, store *cache.Store, planner Invalidator) *MeetingService {
	return &MeetingService{
		meetings:     meetings,
		applications: applications,
		projects:     projects,
		users:        users,
		store:        store,
		planner:      planner,
	}
}

// RequestMeeting создаёт запрос на встречу от имени участника отклика.
// Встречи доступны только по одобренным откликам.
func (s *MeetingService) RequestMeeting(ctx context.Context, callerID, applicationID uuid.UUID, proposedAt time.Time, note *string) (*models.MeetingRequest, error) {
	if _, err := s.requireActiveUser(ctx, callerID); err != nil {
		return nil, err
	}

	app, project, err := s.loadParticipants(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if callerID != app.FreelancerID && callerID != project.ClientID {
		return nil, apperror.ErrApplicationNotFound
	}
	if app.Status != models.ApplicationStatusApproved {
		return nil, apperror.New(apperror.ErrCodeConflict, "встреча возможна только по одобренному отклику")
	}
	if proposedAt.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время встречи должно быть в будущем")
	}

	req := &models.MeetingRequest{
		ApplicationID: applicationID,
		RequestedBy:   callerID,
		ProposedAt:    proposedAt,
		Note:          note,
		Status:        models.MeetingRequestStatusPending,
	}

	if err := s.meetings.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("meeting service: %w", err)
	}

	s.invalidate(ctx, app, project)
	return req, nil
}

// RespondMeeting принимает или отклоняет запрос на встречу.
// Отвечает вторая сторона, не автор запроса. Принятие создаёт встречу
// в той же транзакции, что и смена статуса запроса.
func (s *MeetingService) RespondMeeting(ctx context.Context, callerID, requestID uuid.UUID, accept bool, meetingURL *string) (*models.Meeting, error) {
	if _, err := s.requireActiveUser(ctx, callerID); err != nil {
		return nil, err
	}

	req, err := s.meetings.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingRequestNotFound) {
			return nil, apperror.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("meeting service: %w", err)
	}

	app, project, err := s.loadParticipants(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if callerID != app.FreelancerID && callerID != project.ClientID {
		return nil, apperror.ErrMeetingNotFound
	}
	if callerID == req.RequestedBy {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя ответить на собственный запрос")
	}
	if req.Status != models.MeetingRequestStatusPending {
		return nil, apperror.New(apperror.ErrCodeConflict, "запрос уже рассмотрен")
	}

	var meeting *models.Meeting
	if accept {
		meeting, err = s.meetings.Accept(ctx, req, meetingURL)
	} else {
		err = s.meetings.Decline(ctx, requestID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrMeetingRequestDecided) {
			return nil, apperror.New(apperror.ErrCodeConflict, "запрос уже рассмотрен")
		}
		return nil, fmt.Errorf("meeting service: %w", err)
	}

	s.invalidate(ctx, app, project)
	return meeting, nil
}

// ListApplicationMeetings возвращает запросы и встречи отклика участнику.
func (s *MeetingService) ListApplicationMeetings(ctx context.Context, callerID, applicationID uuid.UUID) ([]models.MeetingRequest, []models.Meeting, error) {
	app, project, err := s.loadParticipants(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	if callerID != app.FreelancerID && callerID != project.ClientID {
		return nil, nil, apperror.ErrApplicationNotFound
	}

	view, _, err := cache.GetOrSet(ctx, s.store, cache.ApplicationMeetingsKey(applicationID), cache.TTLList, func() (applicationMeetings, error) {
		requests, meetings, err := s.meetings.ListByApplication(ctx, applicationID)
		if err != nil {
			return applicationMeetings{}, err
		}
		return applicationMeetings{Requests: requests, Meetings: meetings}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("meeting service: %w", err)
	}

	return view.Requests, view.Meetings, nil
}

func (s *MeetingService) loadParticipants(ctx context.Context, applicationID uuid.UUID) (*models.Application, *models.Project, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, nil, apperror.ErrApplicationNotFound
		}
		return nil, nil, fmt.Errorf("meeting service: %w", err)
	}

	project, err := s.projects.GetByID(ctx, app.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, nil, apperror.ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("meeting service: %w", err)
	}

	return app, project, nil
}

func (s *MeetingService) invalidate(ctx context.Context, app *models.Application, project *models.Project) {
	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:          cache.MutationMeetingChanged,
		ProjectID:     project.ID,
		ClientID:      project.ClientID,
		FreelancerID:  &app.FreelancerID,
		ApplicationID: &app.ID,
	})
}

func (s *MeetingService) requireActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("meeting service: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}
	return user, nil
}
