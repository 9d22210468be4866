package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
)

// RatingRepo операции репозитория оценок, нужные сервису.
type RatingRepo interface {
	CreateWithAggregate(ctx context.Context, rating *models.Rating, agg func(scores []int) float64) error
	UpdateWithAggregate(ctx context.Context, rating *models.Rating, agg func(scores []int) float64) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Rating, error)
	ListByRated(ctx context.Context, ratedID uuid.UUID, page, pageSize int) (*models.RatingPage, error)
}

// RatingService принимает оценки участников завершённых проектов.
// Средний балл профиля пересчитывается синхронно в транзакции записи,
// поэтому видимый агрегат никогда не отстаёт от строк оценок.
type RatingService struct {
	ratings  RatingRepo
	projects ProjectRepoForApplication
	users    UserRepoForProject
	store    *cache.Store
	planner  Invalidator
}

// NewRatingService создаёт сервис оценок.
func NewRatingService(ratings RatingRepo, projects ProjectRepoForApplication, users UserRepoForProject, store *cache.Store, planner Invalidator) *RatingService {
	return &RatingService{
		ratings:  ratings,
		projects: projects,
		users:    users,
		store:    store,
		planner:  planner,
	}
}

// RateParticipant выставляет оценку второму участнику завершённого проекта.
// Направление определяется ролью вызывающего: клиент оценивает исполнителя,
// исполнитель - клиента. Повтор по той же тройке (проект, оценивающий,
// оценённый) отклоняется уникальным индексом.
func (s *RatingService) RateParticipant(ctx context.Context, raterID, projectID uuid.UUID, score int, comment *string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}

	if _, err := s.requireActiveUser(ctx, raterID); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("rating service: %w", err)
	}
	if project.Status != models.ProjectStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeConflict, "оценить можно только завершённый проект")
	}

	var ratedID uuid.UUID
	var ratingType string
	switch {
	case raterID == project.ClientID:
		if project.AssignedTo == nil {
			return nil, apperror.New(apperror.ErrCodeConflict, "у проекта нет назначенного исполнителя")
		}
		ratedID = *project.AssignedTo
		ratingType = models.RatingTypeClientToFreelancer
	case project.AssignedTo != nil && raterID == *project.AssignedTo:
		ratedID = project.ClientID
		ratingType = models.RatingTypeFreelancerToClient
	default:
		return nil, apperror.New(apperror.ErrCodeForbidden, "вы не участник этого проекта")
	}

	rating := &models.Rating{
		ProjectID: projectID,
		RaterID:   raterID,
		RatedID:   ratedID,
		Type:      ratingType,
		Score:     score,
		Comment:   comment,
	}

	if err := s.ratings.CreateWithAggregate(ctx, rating, MeanScore); err != nil {
		if errors.Is(err, repository.ErrDuplicateRating) {
			return nil, apperror.ErrDuplicateRating
		}
		return nil, fmt.Errorf("rating service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:      cache.MutationRatingRecorded,
		ProjectID: projectID,
		ClientID:  project.ClientID,
		RatedID:   &ratedID,
	})

	return rating, nil
}

// UpdateRating меняет балл и комментарий собственной оценки.
// Агрегат профиля пересчитывается в той же транзакции.
func (s *RatingService) UpdateRating(ctx context.Context, raterID, ratingID uuid.UUID, score int, comment *string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}

	rating, err := s.ratings.GetByID(ctx, ratingID)
	if err != nil {
		if errors.Is(err, repository.ErrRatingNotFound) {
			return nil, apperror.ErrRatingNotFound
		}
		return nil, fmt.Errorf("rating service: %w", err)
	}
	if rating.RaterID != raterID {
		return nil, apperror.ErrRatingNotFound
	}

	rating.Score = score
	rating.Comment = comment

	if err := s.ratings.UpdateWithAggregate(ctx, rating, MeanScore); err != nil {
		if errors.Is(err, repository.ErrRatingNotFound) {
			return nil, apperror.ErrRatingNotFound
		}
		return nil, fmt.Errorf("rating service: %w", err)
	}

	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:      cache.MutationRatingRecorded,
		ProjectID: rating.ProjectID,
		RatedID:   &rating.RatedID,
	})

	return rating, nil
}

// ListUserRatings возвращает страницу оценок, полученных пользователем.
func (s *RatingService) ListUserRatings(ctx context.Context, userID uuid.UUID, page, pageSize int) (*models.RatingPage, error) {
	if !cache.DefaultPageGrid().Contains(page, pageSize) {
		return s.ratings.ListByRated(ctx, userID, page, pageSize)
	}

	key := cache.UserRatingsKey(userID, page, pageSize)
	result, _, err := cache.GetOrSet(ctx, s.store, key, cache.TTLList, func() (*models.RatingPage, error) {
		return s.ratings.ListByRated(ctx, userID, page, pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("rating service: %w", err)
	}
	return result, nil
}

func (s *RatingService) requireActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("rating service: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}
	return user, nil
}
