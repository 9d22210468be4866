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

// ProjectRepo операции репозитория проектов, нужные сервису.
type ProjectRepo interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	UpdateStatus(ctx context.Context, projectID uuid.UUID, from, to models.ProjectStatus, reason *string) error
	Complete(ctx context.Context, projectID, freelancerID uuid.UUID) error
	List(ctx context.Context, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error)
}

// UserRepoForProject доступ к пользователям для проверки guard-условий.
type UserRepoForProject interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAdmin(ctx context.Context, userID uuid.UUID) (*models.Admin, error)
}

// Invalidator планировщик инвалидации кэша. Вызывается строго после
// коммита авторитетной транзакции.
type Invalidator interface {
	Invalidate(ctx context.Context, m cache.Mutation)
}

// ProjectService управляет жизненным циклом проекта. Каждый переход
// проходит по таблице переходов, записывается условным обновлением
// и завершается инвалидацией затронутых ключей кэша.
type ProjectService struct {
	projects ProjectRepo
	users    UserRepoForProject
	store    *cache.Store
	planner  Invalidator
	mailer   Mailer
}

// NewProjectService создаёт сервис проектов. Nil mailer означает
// выключенные уведомления.
func NewProjectService(projects ProjectRepo, users UserRepoForProject, store *cache.Store, planner Invalidator, mailer Mailer) *ProjectService {
	return &ProjectService{projects: projects, users: users, store: store, planner: planner, mailer: mailer}
}

// CreateProject создаёт проект от имени клиента. Начальный статус
// всегда admin_verification: до модерации проект невидим в открытых списках.
func (s *ProjectService) CreateProject(ctx context.Context, clientID uuid.UUID, project *models.Project) (*models.Project, error) {
	user, err := s.requireActiveUser(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создавать проекты может только клиент")
	}

	if strings.TrimSpace(project.Title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите название проекта")
	}
	if strings.TrimSpace(project.Description) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите описание проекта")
	}
	if project.BudgetMin != nil && project.BudgetMax != nil && *project.BudgetMin > *project.BudgetMax {
		return nil, apperror.New(apperror.ErrCodeValidation, "минимальный бюджет больше максимального")
	}

	project.ClientID = clientID
	project.Status = models.ProjectStatusAdminVerification
	project.AssignedTo = nil

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:      cache.MutationProjectCreated,
		ProjectID: project.ID,
		ClientID:  clientID,
		NewStatus: string(project.Status),
	})

	return project, nil
}

// GetProject возвращает проект, сначала заглядывая в кэш.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, _, err := cache.GetOrSet(ctx, s.store, cache.ProjectKey(id), cache.TTLEntity, func() (*models.Project, error) {
		return s.projects.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project service: %w", err)
	}
	return project, nil
}

// ListProjects возвращает страницу открытых списков с кэшированием.
// Страницы за пределами сетки перечисления отдаются мимо кэша:
// для них нет ключа, который планировщик смог бы инвалидировать.
func (s *ProjectService) ListProjects(ctx context.Context, status string, page, pageSize int) (*models.ProjectPage, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	if !cache.DefaultPageGrid().Contains(page, pageSize) {
		return s.projects.List(ctx, st, page, pageSize)
	}

	key := cache.ProjectListKey(statusFilterKey(status), page, pageSize)
	result, _, err := cache.GetOrSet(ctx, s.store, key, cache.TTLList, func() (*models.ProjectPage, error) {
		return s.projects.List(ctx, st, page, pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	return result, nil
}

// ListClientProjects возвращает страницу проектов клиента.
func (s *ProjectService) ListClientProjects(ctx context.Context, clientID uuid.UUID, status string, page, pageSize int) (*models.ProjectPage, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	if !cache.DefaultPageGrid().Contains(page, pageSize) {
		return s.projects.ListByClient(ctx, clientID, st, page, pageSize)
	}

	key := cache.ClientProjectsKey(clientID, statusFilterKey(status), page, pageSize)
	result, _, err := cache.GetOrSet(ctx, s.store, key, cache.TTLList, func() (*models.ProjectPage, error) {
		return s.projects.ListByClient(ctx, clientID, st, page, pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	return result, nil
}

// ListFreelancerProjects возвращает страницу проектов, назначенных фрилансеру.
func (s *ProjectService) ListFreelancerProjects(ctx context.Context, freelancerID uuid.UUID, status string, page, pageSize int) (*models.ProjectPage, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	if !cache.DefaultPageGrid().Contains(page, pageSize) {
		return s.projects.ListByFreelancer(ctx, freelancerID, st, page, pageSize)
	}

	key := cache.FreelancerProjectsKey(freelancerID, statusFilterKey(status), page, pageSize)
	result, _, err := cache.GetOrSet(ctx, s.store, key, cache.TTLList, func() (*models.ProjectPage, error) {
		return s.projects.ListByFreelancer(ctx, freelancerID, st, page, pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	return result, nil
}

// UpdateProject редактирует проект владельца до назначения исполнителя.
func (s *ProjectService) UpdateProject(ctx context.Context, clientID uuid.UUID, project *models.Project) (*models.Project, error) {
	if _, err := s.requireActiveUser(ctx, clientID); err != nil {
		return nil, err
	}

	current, err := s.getOwnedProject(ctx, clientID, project.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.ProjectStatusAdminVerification && current.Status != models.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeConflict, "проект нельзя редактировать после назначения исполнителя")
	}

	if strings.TrimSpace(project.Title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите название проекта")
	}

	if err := s.projects.Update(ctx, project); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:      cache.MutationProjectUpdated,
		ProjectID: project.ID,
		ClientID:  clientID,
		OldStatus: string(current.Status),
	})

	return s.loadProject(ctx, project.ID)
}

// ApproveProject переводит проект admin_verification -> open.
// Доступно администратору с правом модерации.
func (s *ProjectService) ApproveProject(ctx context.Context, adminID, projectID uuid.UUID) error {
	if err := s.requireModerator(ctx, adminID); err != nil {
		return err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	return s.transition(ctx, project, models.ProjectStatusOpen, nil)
}

// RejectProject переводит проект admin_verification -> cancelled
// с обязательной причиной.
func (s *ProjectService) RejectProject(ctx context.Context, adminID, projectID uuid.UUID, reason string) error {
	if err := s.requireModerator(ctx, adminID); err != nil {
		return err
	}
	if len(strings.TrimSpace(reason)) < 10 {
		return apperror.New(apperror.ErrCodeValidation, "причина отклонения должна содержать не менее 10 символов")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Status != models.ProjectStatusAdminVerification {
		return apperror.Newf(apperror.ErrCodeConflict, "проект в статусе %s нельзя отклонить", project.Status)
	}

	return s.transition(ctx, project, models.ProjectStatusCancelled, &reason)
}

// CancelProject отменяет открытый проект по запросу владельца.
func (s *ProjectService) CancelProject(ctx context.Context, clientID, projectID uuid.UUID) error {
	if _, err := s.requireActiveUser(ctx, clientID); err != nil {
		return err
	}

	project, err := s.getOwnedProject(ctx, clientID, projectID)
	if err != nil {
		return err
	}
	if project.Status != models.ProjectStatusOpen {
		return apperror.Newf(apperror.ErrCodeConflict, "отменить можно только открытый проект, текущий статус %s", project.Status)
	}

	return s.transition(ctx, project, models.ProjectStatusCancelled, nil)
}

// RequestCompletion заявляет о выполнении: assigned -> pending_completion.
// Вызывается назначенным фрилансером; аккаунт клиента должен быть активен,
// иначе подтверждать завершение будет некому.
func (s *ProjectService) RequestCompletion(ctx context.Context, freelancerID, projectID uuid.UUID) error {
	if _, err := s.requireActiveUser(ctx, freelancerID); err != nil {
		return err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.AssignedTo == nil || *project.AssignedTo != freelancerID {
		return apperror.New(apperror.ErrCodeForbidden, "вы не назначены на этот проект")
	}
	if project.Status != models.ProjectStatusAssigned {
		return apperror.Newf(apperror.ErrCodeConflict, "завершение можно запросить только для проекта в работе, текущий статус %s", project.Status)
	}

	client, err := s.users.GetByID(ctx, project.ClientID)
	if err != nil {
		return fmt.Errorf("project service: %w", err)
	}
	if !client.IsActive {
		return apperror.New(apperror.ErrCodeConflict, "аккаунт клиента заблокирован, завершение недоступно")
	}

	if err := s.transition(ctx, project, models.ProjectStatusPendingCompletion, nil); err != nil {
		return err
	}

	s.notify(ctx, project.ClientID, "Запрошено завершение проекта",
		fmt.Sprintf("Фрилансер сообщил о выполнении проекта «%s». Подтвердите или отклоните завершение.", project.Title))

	return nil
}

// ApproveCompletion подтверждает завершение: pending_completion -> completed.
// Счётчик выполненных проектов фрилансера инкрементируется в той же транзакции.
func (s *ProjectService) ApproveCompletion(ctx context.Context, clientID, projectID uuid.UUID) error {
	if _, err := s.requireActiveUser(ctx, clientID); err != nil {
		return err
	}

	project, err := s.getOwnedProject(ctx, clientID, projectID)
	if err != nil {
		return err
	}
	if project.Status != models.ProjectStatusPendingCompletion {
		return apperror.Newf(apperror.ErrCodeConflict, "подтвердить завершение можно только после запроса фрилансера, текущий статус %s", project.Status)
	}
	if project.AssignedTo == nil {
		return apperror.New(apperror.ErrCodeConflict, "у проекта нет назначенного исполнителя")
	}

	if err := s.projects.Complete(ctx, projectID, *project.AssignedTo); err != nil {
		if errors.Is(err, repository.ErrProjectStatusConflict) {
			return apperror.New(apperror.ErrCodeConflict, "статус проекта изменился, повторите запрос")
		}
		return fmt.Errorf("project service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:         cache.MutationProjectStatusChanged,
		ProjectID:    projectID,
		ClientID:     project.ClientID,
		FreelancerID: project.AssignedTo,
		OldStatus:    string(models.ProjectStatusPendingCompletion),
		NewStatus:    string(models.ProjectStatusCompleted),
	})

	s.notify(ctx, *project.AssignedTo, "Проект завершён",
		fmt.Sprintf("Клиент подтвердил завершение проекта «%s».", project.Title))

	return nil
}

// RejectCompletion отклоняет завершение: pending_completion -> assigned.
// Работа возвращается исполнителю, назначение сохраняется. Без причины
// отклонение не принимается: исполнитель должен понимать, что исправлять.
func (s *ProjectService) RejectCompletion(ctx context.Context, clientID, projectID uuid.UUID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperror.New(apperror.ErrCodeValidation, "укажите причину отклонения завершения")
	}

	if _, err := s.requireActiveUser(ctx, clientID); err != nil {
		return err
	}

	project, err := s.getOwnedProject(ctx, clientID, projectID)
	if err != nil {
		return err
	}
	if project.Status != models.ProjectStatusPendingCompletion {
		return apperror.Newf(apperror.ErrCodeConflict, "отклонить завершение можно только после запроса фрилансера, текущий статус %s", project.Status)
	}

	if err := s.transition(ctx, project, models.ProjectStatusAssigned, &reason); err != nil {
		return err
	}

	if project.AssignedTo != nil {
		s.notify(ctx, *project.AssignedTo, "Завершение отклонено",
			fmt.Sprintf("Клиент вернул проект «%s» в работу.", project.Title))
	}

	return nil
}

// transition выполняет переход по таблице и инвалидирует кэш.
// Условное обновление репозитория - финальная защита от гонки:
// проверка guard-условий выше и запись здесь не атомарны между собой.
func (s *ProjectService) transition(ctx context.Context, project *models.Project, to models.ProjectStatus, reason *string) error {
	if !project.Status.CanTransitionTo(to) {
		return apperror.Newf(apperror.ErrCodeConflict, "переход %s -> %s недопустим", project.Status, to)
	}

	if err := s.projects.UpdateStatus(ctx, project.ID, project.Status, to, reason); err != nil {
		if errors.Is(err, repository.ErrProjectStatusConflict) {
			return apperror.New(apperror.ErrCodeConflict, "статус проекта изменился, повторите запрос")
		}
		return fmt.Errorf("project service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:         cache.MutationProjectStatusChanged,
		ProjectID:    project.ID,
		ClientID:     project.ClientID,
		FreelancerID: project.AssignedTo,
		OldStatus:    string(project.Status),
		NewStatus:    string(to),
	})

	return nil
}

// notify отправляет письмо пользователю. Письмо не влияет на исход
// операции: ошибка загрузки адресата его молча отменяет.
func (s *ProjectService) notify(ctx context.Context, userID uuid.UUID, subject, body string) {
	if s.mailer == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return
	}
	s.mailer.Send(user.Email, subject, body)
}

func (s *ProjectService) loadProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project service: %w", err)
	}
	return project, nil
}

// getOwnedProject возвращает проект, только если он принадлежит клиенту.
// Чужой проект неотличим от несуществующего.
func (s *ProjectService) getOwnedProject(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrProjectNotFound
	}
	return project, nil
}

func (s *ProjectService) requireActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("project service: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}
	return user, nil
}

func (s *ProjectService) requireModerator(ctx context.Context, adminID uuid.UUID) error {
	if _, err := s.requireActiveUser(ctx, adminID); err != nil {
		return err
	}

	admin, err := s.users.GetAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return apperror.ErrForbidden
		}
		return fmt.Errorf("project service: %w", err)
	}
	if !admin.HasPermission(models.AdminPermissionModerateProjects) {
		return apperror.ErrForbidden
	}
	return nil
}

// parseStatusFilter разбирает строковый фильтр статуса из запроса.
// Пустая строка и "all" - отсутствие фильтра.
func parseStatusFilter(status string) (models.ProjectStatus, error) {
	if status == "" || status == cache.StatusAll {
		return "", nil
	}
	st := models.ProjectStatus(status)
	if !st.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "неизвестный статус: %s", status)
	}
	return st, nil
}

// statusFilterKey нормализует фильтр для ключа кэша.
func statusFilterKey(status string) string {
	if status == "" {
		return cache.StatusAll
	}
	return status
}
