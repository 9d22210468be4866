package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
)

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	if args.Error(0) == nil {
		project.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectRepo) UpdateStatus(ctx context.Context, projectID uuid.UUID, from, to models.ProjectStatus, reason *string) error {
	args := m.Called(ctx, projectID, from, to, reason)
	return args.Error(0)
}

func (m *mockProjectRepo) Complete(ctx context.Context, projectID, freelancerID uuid.UUID) error {
	args := m.Called(ctx, projectID, freelancerID)
	return args.Error(0)
}

func (m *mockProjectRepo) List(ctx context.Context, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectPage), args.Error(1)
}

func (m *mockProjectRepo) ListByClient(ctx context.Context, clientID uuid.UUID, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	args := m.Called(ctx, clientID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectPage), args.Error(1)
}

func (m *mockProjectRepo) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	args := m.Called(ctx, freelancerID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectPage), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) GetFreelancerProfile(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FreelancerProfile), args.Error(1)
}

func (m *mockUserRepo) GetAdmin(ctx context.Context, userID uuid.UUID) (*models.Admin, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

// recordingPlanner запоминает мутации вместо удаления ключей.
type recordingPlanner struct {
	mu        sync.Mutex
	mutations []cache.Mutation
}

func (p *recordingPlanner) Invalidate(_ context.Context, m cache.Mutation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mutations = append(p.mutations, m)
}

func (p *recordingPlanner) last(t *testing.T) cache.Mutation {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.mutations, "ожидалась инвалидация кэша")
	return p.mutations[len(p.mutations)-1]
}

func activeUser(role string) *models.User {
	return &models.User{ID: uuid.New(), Role: role, IsActive: true}
}

func TestProjectService_CreateProject_Success(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	planner := &recordingPlanner{}
	svc := NewProjectService(projects, users, nil, planner, nil)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)
	projects.On("Create", ctx, mock.AnythingOfType("*models.Project")).Return(nil)

	created, err := svc.CreateProject(ctx, client.ID, &models.Project{
		Title:       "Сайт кофейни",
		Description: "Лендинг с онлайн-заказом",
	})

	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusAdminVerification, created.Status)
	assert.Equal(t, client.ID, created.ClientID)
	assert.Nil(t, created.AssignedTo)

	m := planner.last(t)
	assert.Equal(t, cache.MutationProjectCreated, m.Kind)
	assert.Equal(t, client.ID, m.ClientID)
	projects.AssertExpectations(t)
}

func TestProjectService_CreateProject_FreelancerForbidden(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	freelancer := activeUser(models.RoleFreelancer)
	users.On("GetByID", ctx, freelancer.ID).Return(freelancer, nil)

	_, err := svc.CreateProject(ctx, freelancer.ID, &models.Project{Title: "x", Description: "y"})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
	projects.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectService_CreateProject_BlockedUser(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	blocked := &models.User{ID: uuid.New(), Role: models.RoleClient, IsActive: false}
	users.On("GetByID", ctx, blocked.ID).Return(blocked, nil)

	_, err := svc.CreateProject(ctx, blocked.ID, &models.Project{Title: "x", Description: "y"})

	assert.True(t, apperror.IsUnauthorized(err))
}

func TestProjectService_CreateProject_BudgetValidation(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	minB, maxB := 5000.0, 1000.0
	_, err := svc.CreateProject(ctx, client.ID, &models.Project{
		Title:       "Сайт",
		Description: "Описание",
		BudgetMin:   &minB,
		BudgetMax:   &maxB,
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestProjectService_CancelProject_OnlyOpen(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	freelancerID := uuid.New()
	project := &models.Project{
		ID:         uuid.New(),
		ClientID:   client.ID,
		AssignedTo: &freelancerID,
		Status:     models.ProjectStatusAssigned,
	}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	err := svc.CancelProject(ctx, client.ID, project.ID)

	assert.True(t, apperror.IsConflict(err))
	projects.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_CancelProject_ForeignProjectLooksMissing(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	caller := activeUser(models.RoleClient)
	users.On("GetByID", ctx, caller.ID).Return(caller, nil)

	project := &models.Project{ID: uuid.New(), ClientID: uuid.New(), Status: models.ProjectStatusOpen}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	err := svc.CancelProject(ctx, caller.ID, project.ID)

	// Чужой проект неотличим от несуществующего.
	assert.True(t, apperror.IsNotFound(err))
}

func TestProjectService_ApproveProject_RequiresModeratorPermission(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	admin := activeUser(models.RoleAdmin)
	users.On("GetByID", ctx, admin.ID).Return(admin, nil)
	users.On("GetAdmin", ctx, admin.ID).Return(&models.Admin{
		UserID:      admin.ID,
		Permissions: []string{models.AdminPermissionManageUsers},
	}, nil)

	err := svc.ApproveProject(ctx, admin.ID, uuid.New())

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
}

func TestProjectService_ApproveProject_Success(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	planner := &recordingPlanner{}
	svc := NewProjectService(projects, users, nil, planner, nil)
	ctx := context.Background()

	admin := activeUser(models.RoleAdmin)
	users.On("GetByID", ctx, admin.ID).Return(admin, nil)
	users.On("GetAdmin", ctx, admin.ID).Return(&models.Admin{
		UserID:      admin.ID,
		Permissions: []string{models.AdminPermissionModerateProjects},
	}, nil)

	project := &models.Project{ID: uuid.New(), ClientID: uuid.New(), Status: models.ProjectStatusAdminVerification}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	projects.On("UpdateStatus", ctx, project.ID, models.ProjectStatusAdminVerification, models.ProjectStatusOpen, (*string)(nil)).Return(nil)

	require.NoError(t, svc.ApproveProject(ctx, admin.ID, project.ID))

	m := planner.last(t)
	assert.Equal(t, cache.MutationProjectStatusChanged, m.Kind)
	assert.Equal(t, string(models.ProjectStatusAdminVerification), m.OldStatus)
	assert.Equal(t, string(models.ProjectStatusOpen), m.NewStatus)
	projects.AssertExpectations(t)
}

func TestProjectService_RejectProject_ReasonTooShort(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	admin := activeUser(models.RoleAdmin)
	users.On("GetByID", ctx, admin.ID).Return(admin, nil)
	users.On("GetAdmin", ctx, admin.ID).Return(&models.Admin{
		UserID:      admin.ID,
		Permissions: []string{models.AdminPermissionModerateProjects},
	}, nil)

	err := svc.RejectProject(ctx, admin.ID, uuid.New(), "плохо   ")

	assert.True(t, apperror.IsValidation(err))
}

func TestProjectService_Transition_RaceSurfacesAsConflict(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	project := &models.Project{ID: uuid.New(), ClientID: client.ID, Status: models.ProjectStatusOpen}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	// Между чтением и записью статус успел измениться.
	projects.On("UpdateStatus", ctx, project.ID, models.ProjectStatusOpen, models.ProjectStatusCancelled, (*string)(nil)).
		Return(repository.ErrProjectStatusConflict)

	err := svc.CancelProject(ctx, client.ID, project.ID)

	assert.True(t, apperror.IsConflict(err))
}

func TestProjectService_RequestCompletion_OnlyAssignee(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	freelancer := activeUser(models.RoleFreelancer)
	users.On("GetByID", ctx, freelancer.ID).Return(freelancer, nil)

	other := uuid.New()
	project := &models.Project{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		AssignedTo: &other,
		Status:     models.ProjectStatusAssigned,
	}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	err := svc.RequestCompletion(ctx, freelancer.ID, project.ID)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
}

func TestProjectService_RequestCompletion_BlockedClient(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	freelancer := activeUser(models.RoleFreelancer)
	blockedClient := &models.User{ID: uuid.New(), Role: models.RoleClient, IsActive: false}
	users.On("GetByID", ctx, freelancer.ID).Return(freelancer, nil)
	users.On("GetByID", ctx, blockedClient.ID).Return(blockedClient, nil)

	project := &models.Project{
		ID:         uuid.New(),
		ClientID:   blockedClient.ID,
		AssignedTo: &freelancer.ID,
		Status:     models.ProjectStatusAssigned,
	}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	err := svc.RequestCompletion(ctx, freelancer.ID, project.ID)

	assert.True(t, apperror.IsConflict(err))
}

func TestProjectService_ApproveCompletion_Success(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	planner := &recordingPlanner{}
	svc := NewProjectService(projects, users, nil, planner, nil)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	freelancerID := uuid.New()
	project := &models.Project{
		ID:         uuid.New(),
		ClientID:   client.ID,
		AssignedTo: &freelancerID,
		Status:     models.ProjectStatusPendingCompletion,
	}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	projects.On("Complete", ctx, project.ID, freelancerID).Return(nil)

	require.NoError(t, svc.ApproveCompletion(ctx, client.ID, project.ID))

	m := planner.last(t)
	assert.Equal(t, cache.MutationProjectStatusChanged, m.Kind)
	assert.Equal(t, string(models.ProjectStatusCompleted), m.NewStatus)
	require.NotNil(t, m.FreelancerID)
	assert.Equal(t, freelancerID, *m.FreelancerID)
}

func TestProjectService_ApproveCompletion_NotifiesFreelancer(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	mailer := &fakeMailer{}
	svc := NewProjectService(projects, users, nil, &recordingPlanner{}, mailer)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	freelancer := activeUser(models.RoleFreelancer)
	freelancer.Email = "freelancer@example.com"
	users.On("GetByID", ctx, freelancer.ID).Return(freelancer, nil)

	project := &models.Project{
		ID:         uuid.New(),
		ClientID:   client.ID,
		Title:      "Бот поддержки",
		AssignedTo: &freelancer.ID,
		Status:     models.ProjectStatusPendingCompletion,
	}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	projects.On("Complete", ctx, project.ID, freelancer.ID).Return(nil)

	require.NoError(t, svc.ApproveCompletion(ctx, client.ID, project.ID))

	assert.Equal(t, []string{"freelancer@example.com"}, mailer.sent)
}

func TestProjectService_RejectCompletion_ReturnsToAssigned(t *testing.T) {
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	planner := &recordingPlanner{}
	svc := NewProjectService(projects, users, nil, planner, nil)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	freelancerID := uuid.New()
	project := &models.Project{
		ID:         uuid.New(),
		ClientID:   client.ID,
		AssignedTo: &freelancerID,
		Status:     models.ProjectStatusPendingCompletion,
	}
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	projects.On("UpdateStatus", ctx, project.ID, models.ProjectStatusPendingCompletion, models.ProjectStatusAssigned, mock.Anything).Return(nil)

	require.NoError(t, svc.RejectCompletion(ctx, client.ID, project.ID, "нужны правки по вёрстке"))

	m := planner.last(t)
	assert.Equal(t, string(models.ProjectStatusAssigned), m.NewStatus)
}

func TestProjectService_RejectCompletion_EmptyReason(t *testing.T) {
	projects := new(mockProjectRepo)
	svc := NewProjectService(projects, new(mockUserRepo), nil, &recordingPlanner{}, nil)

	err := svc.RejectCompletion(context.Background(), uuid.New(), uuid.New(), "   ")

	assert.True(t, apperror.IsValidation(err))
	projects.AssertNotCalled(t, "UpdateStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_ListProjects_InvalidStatusFilter(t *testing.T) {
	svc := NewProjectService(new(mockProjectRepo), new(mockUserRepo), nil, &recordingPlanner{}, nil)

	_, err := svc.ListProjects(context.Background(), "archived", 1, 10)

	assert.True(t, apperror.IsValidation(err))
}

func TestProjectService_ListProjects_OutOfGridBypassesCache(t *testing.T) {
	projects := new(mockProjectRepo)
	svc := NewProjectService(projects, new(mockUserRepo), nil, &recordingPlanner{}, nil)
	ctx := context.Background()

	page := &models.ProjectPage{Page: 11, PageSize: 10}
	projects.On("List", ctx, models.ProjectStatus(""), 11, 10).Return(page, nil)

	got, err := svc.ListProjects(ctx, "", 11, 10)

	require.NoError(t, err)
	assert.Equal(t, page, got)
	projects.AssertExpectations(t)
}
