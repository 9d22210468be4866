package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
)

// ApplicationRepo операции репозитория откликов, нужные сервису.
type ApplicationRepo interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	Approve(ctx context.Context, app *models.Application) ([]uuid.UUID, error)
	Reject(ctx context.Context, applicationID uuid.UUID) error
	ListByProject(ctx context.Context, projectID uuid.UUID, status models.ApplicationStatus, page, pageSize int) (*models.ApplicationPage, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status models.ApplicationStatus, page, pageSize int) (*models.ApplicationPage, error)
}

// ProjectRepoForApplication доступ к проектам для guard-условий отклика.
type ProjectRepoForApplication interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// UserRepoForApplication доступ к пользователям и профилю фрилансера
// для guard-условий отклика.
type UserRepoForApplication interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetFreelancerProfile(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error)
}

// ApplicationService управляет откликами фрилансеров. Одобрение отклика -
// единственная операция, меняющая сразу проект и пачку откликов: вся
// запись атомарна на уровне репозитория.
type ApplicationService struct {
	applications ApplicationRepo
	projects     ProjectRepoForApplication
	users        UserRepoForApplication
	store        *cache.Store
	planner      Invalidator
	mailer       Mailer
}

// NewApplicationService создаёт сервис откликов. Nil mailer означает
// выключенные уведомления.
func NewApplicationService(applications ApplicationRepo, projects ProjectRepoForApplication, users UserRepoForApplication, store *cache.Store, planner Invalidator, mailer Mailer) *ApplicationService {
	return &ApplicationService{
		applications: applications,
		projects:     projects,
		users:        users,
		store:        store,
		planner:      planner,
		mailer:       mailer,
	}
}

// Apply создаёт отклик фрилансера на открытый проект.
// Повторный отклик на тот же проект отклоняется: проверка здесь - для
// понятного сообщения, уникальный индекс - для гонки двух запросов.
func (s *ApplicationService) Apply(ctx context.Context, freelancerID uuid.UUID, app *models.Application) (*models.Application, error) {
	user, err := s.requireActiveUser(ctx, freelancerID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться на проекты может только фрилансер")
	}

	profile, err := s.users.GetFreelancerProfile(ctx, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("application service: %w", err)
	}
	if !profile.Available {
		return nil, apperror.New(apperror.ErrCodeConflict, "в профиле выключена доступность для новых проектов")
	}

	if strings.TrimSpace(app.CoverLetter) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите сопроводительное письмо")
	}
	if app.ProposedAmount != nil && *app.ProposedAmount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "предложенная сумма должна быть положительной")
	}

	project, err := s.loadProject(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.Newf(apperror.ErrCodeConflict, "откликнуться можно только на открытый проект, текущий статус %s", project.Status)
	}

	client, err := s.users.GetByID(ctx, project.ClientID)
	if err != nil {
		return nil, fmt.Errorf("application service: %w", err)
	}
	if !client.IsActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "аккаунт клиента заблокирован, отклик невозможен")
	}

	app.FreelancerID = freelancerID
	app.Status = models.ApplicationStatusPending

	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicateApplication) {
			return nil, apperror.New(apperror.ErrCodeConflict, "вы уже откликались на этот проект")
		}
		return nil, fmt.Errorf("application service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:          cache.MutationApplicationCreated,
		ProjectID:     project.ID,
		ClientID:      project.ClientID,
		FreelancerID:  &freelancerID,
		ApplicationID: &app.ID,
	})

	return app, nil
}

// ApproveApplication одобряет отклик от имени владельца проекта.
// Атомарно: проект open -> assigned с назначением исполнителя, отклик
// approved, остальные pending отклики проекта rejected. При конкурентном
// одобрении двух откликов ровно один запрос проходит, второй получает
// конфликт - проект уже не open.
func (s *ApplicationService) ApproveApplication(ctx context.Context, clientID, applicationID uuid.UUID) error {
	if _, err := s.requireActiveUser(ctx, clientID); err != nil {
		return err
	}

	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationStatusPending {
		return apperror.New(apperror.ErrCodeConflict, "отклик уже рассмотрен")
	}

	project, err := s.loadProject(ctx, app.ProjectID)
	if err != nil {
		return err
	}
	if project.ClientID != clientID {
		return apperror.ErrApplicationNotFound
	}
	if project.Status != models.ProjectStatusOpen {
		return apperror.Newf(apperror.ErrCodeConflict, "назначить исполнителя можно только на открытый проект, текущий статус %s", project.Status)
	}

	siblings, err := s.applications.Approve(ctx, app)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectStatusConflict):
			return apperror.New(apperror.ErrCodeConflict, "проект уже не открыт, исполнитель не назначен")
		case errors.Is(err, repository.ErrApplicationDecided):
			return apperror.New(apperror.ErrCodeConflict, "отклик уже рассмотрен")
		}
		return fmt.Errorf("application service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:                 cache.MutationApplicationDecided,
		ProjectID:            project.ID,
		ClientID:             project.ClientID,
		FreelancerID:         &app.FreelancerID,
		ApplicationID:        &app.ID,
		OldStatus:            string(models.ProjectStatusOpen),
		NewStatus:            string(models.ProjectStatusAssigned),
		SiblingFreelancerIDs: siblings,
	})

	s.notify(ctx, app.FreelancerID, "Отклик одобрен",
		fmt.Sprintf("Вы назначены исполнителем проекта «%s».", project.Title))
	for _, siblingID := range siblings {
		s.notify(ctx, siblingID, "Отклик отклонён",
			fmt.Sprintf("По проекту «%s» выбран другой исполнитель.", project.Title))
	}

	return nil
}

// RejectApplication отклоняет одиночный отклик. Проект остаётся открытым.
func (s *ApplicationService) RejectApplication(ctx context.Context, clientID, applicationID uuid.UUID) error {
	if _, err := s.requireActiveUser(ctx, clientID); err != nil {
		return err
	}

	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return err
	}

	project, err := s.loadProject(ctx, app.ProjectID)
	if err != nil {
		return err
	}
	if project.ClientID != clientID {
		return apperror.ErrApplicationNotFound
	}
	if app.Status != models.ApplicationStatusPending {
		return apperror.New(apperror.ErrCodeConflict, "отклик уже рассмотрен")
	}

	if err := s.applications.Reject(ctx, applicationID); err != nil {
		if errors.Is(err, repository.ErrApplicationDecided) {
			return apperror.New(apperror.ErrCodeConflict, "отклик уже рассмотрен")
		}
		return fmt.Errorf("application service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:          cache.MutationApplicationDecided,
		ProjectID:     project.ID,
		ClientID:      project.ClientID,
		FreelancerID:  &app.FreelancerID,
		ApplicationID: &app.ID,
		OldStatus:     string(project.Status),
		NewStatus:     string(project.Status),
	})

	s.notify(ctx, app.FreelancerID, "Отклик отклонён",
		fmt.Sprintf("Клиент отклонил ваш отклик на проект «%s».", project.Title))

	return nil
}

// GetApplication возвращает отклик его автору или владельцу проекта.
func (s *ApplicationService) GetApplication(ctx context.Context, callerID, applicationID uuid.UUID) (*models.Application, error) {
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if app.FreelancerID == callerID {
		return app, nil
	}

	project, err := s.loadProject(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, apperror.ErrApplicationNotFound
	}

	return app, nil
}

// ListProjectApplications возвращает страницу откликов на проект владельцу.
func (s *ApplicationService) ListProjectApplications(ctx context.Context, clientID, projectID uuid.UUID, status string, page, pageSize int) (*models.ApplicationPage, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrProjectNotFound
	}

	st, err := parseApplicationStatusFilter(status)
	if err != nil {
		return nil, err
	}

	if !cache.DefaultPageGrid().Contains(page, pageSize) {
		return s.applications.ListByProject(ctx, projectID, st, page, pageSize)
	}

	key := cache.ProjectApplicationsKey(projectID, statusFilterKey(status), page, pageSize)
	result, _, err := cache.GetOrSet(ctx, s.store, key, cache.TTLList, func() (*models.ApplicationPage, error) {
		return s.applications.ListByProject(ctx, projectID, st, page, pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("application service: %w", err)
	}
	return result, nil
}

// ListFreelancerApplications возвращает страницу откликов фрилансера.
func (s *ApplicationService) ListFreelancerApplications(ctx context.Context, freelancerID uuid.UUID, status string, page, pageSize int) (*models.ApplicationPage, error) {
	st, err := parseApplicationStatusFilter(status)
	if err != nil {
		return nil, err
	}

	if !cache.DefaultPageGrid().Contains(page, pageSize) {
		return s.applications.ListByFreelancer(ctx, freelancerID, st, page, pageSize)
	}

	key := cache.FreelancerApplicationsKey(freelancerID, statusFilterKey(status), page, pageSize)
	result, _, err := cache.GetOrSet(ctx, s.store, key, cache.TTLList, func() (*models.ApplicationPage, error) {
		return s.applications.ListByFreelancer(ctx, freelancerID, st, page, pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("application service: %w", err)
	}
	return result, nil
}

func (s *ApplicationService) loadApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, apperror.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("application service: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) loadProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("application service: %w", err)
	}
	return project, nil
}

// notify отправляет письмо пользователю. Письмо не влияет на исход
// операции: ошибка загрузки адресата его молча отменяет.
func (s *ApplicationService) notify(ctx context.Context, userID uuid.UUID, subject, body string) {
	if s.mailer == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return
	}
	s.mailer.Send(user.Email, subject, body)
}

func (s *ApplicationService) requireActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("application service: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}
	return user, nil
}

// parseApplicationStatusFilter разбирает фильтр статуса отклика.
func parseApplicationStatusFilter(status string) (models.ApplicationStatus, error) {
	if status == "" || status == cache.StatusAll {
		return "", nil
	}
	st := models.ApplicationStatus(status)
	if !st.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "неизвестный статус отклика: %s", status)
	}
	return st, nil
}
