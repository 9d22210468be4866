package service

import (
	"context"
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

type mockRatingRepo struct {
	mock.Mock
}

func (m *mockRatingRepo) CreateWithAggregate(ctx context.Context, rating *models.Rating, agg func(scores []int) float64) error {
	args := m.Called(ctx, rating, agg)
	if args.Error(0) == nil {
		rating.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockRatingRepo) UpdateWithAggregate(ctx context.Context, rating *models.Rating, agg func(scores []int) float64) error {
	args := m.Called(ctx, rating, agg)
	return args.Error(0)
}

func (m *mockRatingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Rating, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

func (m *mockRatingRepo) ListByRated(ctx context.Context, ratedID uuid.UUID, page, pageSize int) (*models.RatingPage, error) {
	args := m.Called(ctx, ratedID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatingPage), args.Error(1)
}

func completedProject(clientID, freelancerID uuid.UUID) *models.Project {
	return &models.Project{
		ID:         uuid.New(),
		ClientID:   clientID,
		AssignedTo: &freelancerID,
		Status:     models.ProjectStatusCompleted,
	}
}

func TestRatingService_RateParticipant_ClientRatesFreelancer(t *testing.T) {
	ratings := new(mockRatingRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	planner := &recordingPlanner{}
	svc := NewRatingService(ratings, projects, users, nil, planner)
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	freelancerID := uuid.New()
	project := completedProject(client.ID, freelancerID)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	ratings.On("CreateWithAggregate", ctx, mock.AnythingOfType("*models.Rating"), mock.Anything).Return(nil)

	rating, err := svc.RateParticipant(ctx, client.ID, project.ID, 5, nil)

	require.NoError(t, err)
	assert.Equal(t, freelancerID, rating.RatedID)
	assert.Equal(t, models.RatingTypeClientToFreelancer, rating.Type)

	m := planner.last(t)
	assert.Equal(t, cache.MutationRatingRecorded, m.Kind)
	require.NotNil(t, m.RatedID)
	assert.Equal(t, freelancerID, *m.RatedID)
}

func TestRatingService_RateParticipant_FreelancerRatesClient(t *testing.T) {
	ratings := new(mockRatingRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewRatingService(ratings, projects, users, nil, &recordingPlanner{})
	ctx := context.Background()

	freelancer := activeUser(models.RoleFreelancer)
	users.On("GetByID", ctx, freelancer.ID).Return(freelancer, nil)

	clientID := uuid.New()
	project := completedProject(clientID, freelancer.ID)
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	ratings.On("CreateWithAggregate", ctx, mock.AnythingOfType("*models.Rating"), mock.Anything).Return(nil)

	rating, err := svc.RateParticipant(ctx, freelancer.ID, project.ID, 4, nil)

	require.NoError(t, err)
	assert.Equal(t, clientID, rating.RatedID)
	assert.Equal(t, models.RatingTypeFreelancerToClient, rating.Type)
}

func TestRatingService_RateParticipant_ScoreOutOfRange(t *testing.T) {
	svc := NewRatingService(new(mockRatingRepo), new(mockProjectRepo), new(mockUserRepo), nil, &recordingPlanner{})

	for _, score := range []int{0, 6, -1} {
		_, err := svc.RateParticipant(context.Background(), uuid.New(), uuid.New(), score, nil)
		assert.True(t, apperror.IsValidation(err), "score %d", score)
	}
}

func TestRatingService_RateParticipant_ProjectNotCompleted(t *testing.T) {
	ratings := new(mockRatingRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewRatingService(ratings, projects, users, nil, &recordingPlanner{})
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

	_, err := svc.RateParticipant(ctx, client.ID, project.ID, 5, nil)

	assert.True(t, apperror.IsConflict(err))
	ratings.AssertNotCalled(t, "CreateWithAggregate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRatingService_RateParticipant_StrangerForbidden(t *testing.T) {
	ratings := new(mockRatingRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewRatingService(ratings, projects, users, nil, &recordingPlanner{})
	ctx := context.Background()

	stranger := activeUser(models.RoleFreelancer)
	users.On("GetByID", ctx, stranger.ID).Return(stranger, nil)

	project := completedProject(uuid.New(), uuid.New())
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.RateParticipant(ctx, stranger.ID, project.ID, 3, nil)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
}

func TestRatingService_RateParticipant_Duplicate(t *testing.T) {
	ratings := new(mockRatingRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserRepo)
	svc := NewRatingService(ratings, projects, users, nil, &recordingPlanner{})
	ctx := context.Background()

	client := activeUser(models.RoleClient)
	users.On("GetByID", ctx, client.ID).Return(client, nil)

	project := completedProject(client.ID, uuid.New())
	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	ratings.On("CreateWithAggregate", ctx, mock.AnythingOfType("*models.Rating"), mock.Anything).
		Return(repository.ErrDuplicateRating)

	_, err := svc.RateParticipant(ctx, client.ID, project.ID, 5, nil)

	assert.ErrorIs(t, err, apperror.ErrDuplicateRating)
}

func TestRatingService_UpdateRating_OnlyAuthor(t *testing.T) {
	ratings := new(mockRatingRepo)
	svc := NewRatingService(ratings, new(mockProjectRepo), new(mockUserRepo), nil, &recordingPlanner{})
	ctx := context.Background()

	rating := &models.Rating{
		ID:      uuid.New(),
		RaterID: uuid.New(),
		RatedID: uuid.New(),
		Score:   3,
	}
	ratings.On("GetByID", ctx, rating.ID).Return(rating, nil)

	_, err := svc.UpdateRating(ctx, uuid.New(), rating.ID, 4, nil)

	// Чужая оценка неотличима от несуществующей.
	assert.True(t, apperror.IsNotFound(err))
}

func TestRatingService_UpdateRating_Success(t *testing.T) {
	ratings := new(mockRatingRepo)
	planner := &recordingPlanner{}
	svc := NewRatingService(ratings, new(mockProjectRepo), new(mockUserRepo), nil, planner)
	ctx := context.Background()

	raterID := uuid.New()
	rating := &models.Rating{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		RaterID:   raterID,
		RatedID:   uuid.New(),
		Score:     2,
	}
	ratings.On("GetByID", ctx, rating.ID).Return(rating, nil)
	ratings.On("UpdateWithAggregate", ctx, rating, mock.Anything).Return(nil)

	comment := "после правок стало лучше"
	updated, err := svc.UpdateRating(ctx, raterID, rating.ID, 4, &comment)

	require.NoError(t, err)
	assert.Equal(t, 4, updated.Score)
	require.NotNil(t, updated.Comment)

	m := planner.last(t)
	assert.Equal(t, cache.MutationRatingRecorded, m.Kind)
}
