package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/logger"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
	"github.com/ignatzorin/taskbridge-backend/internal/validation"
)

// ProfileRepo операции репозитория пользователей, нужные сервису профилей.
type ProfileRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetFreelancerProfile(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error)
	GetClientProfile(ctx context.Context, userID uuid.UUID) (*models.ClientProfile, error)
	UpdateFreelancerProfile(ctx context.Context, p *models.FreelancerProfile) error
	UpdateClientProfile(ctx context.Context, p *models.ClientProfile) error
	ListFeaturedFreelancers(ctx context.Context, limit int) ([]models.FreelancerProfile, error)
	GetPlatformStats(ctx context.Context) (*models.PlatformStats, error)
}

// PhotoStore файловое хранилище фотографий профилей.
type PhotoStore interface {
	Save(ctx context.Context, r io.Reader) (uuid.UUID, error)
	Open(ctx context.Context, photoID uuid.UUID) ([]byte, string, error)
	Delete(ctx context.Context, photoID uuid.UUID) error
}

const featuredFreelancersLimit = 10

// ProfileService отдаёт и обновляет профили участников.
// Чтения идут через кэш, обновления завершаются инвалидацией.
type ProfileService struct {
	repo    ProfileRepo
	photos  PhotoStore
	store   *cache.Store
	planner Invalidator
}

// NewProfileService создаёт сервис профилей.
func NewProfileService(repo ProfileRepo, photos PhotoStore, store *cache.Store, planner Invalidator) *ProfileService {
	return &ProfileService{repo: repo, photos: photos, store: store, planner: planner}
}

// GetFreelancer возвращает профиль фрилансера, сначала заглядывая в кэш.
func (s *ProfileService) GetFreelancer(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error) {
	profile, _, err := cache.GetOrSet(ctx, s.store, cache.FreelancerKey(userID), cache.TTLEntity, func() (*models.FreelancerProfile, error) {
		return s.repo.GetFreelancerProfile(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return profile, nil
}

// GetClient возвращает профиль клиента, сначала заглядывая в кэш.
func (s *ProfileService) GetClient(ctx context.Context, userID uuid.UUID) (*models.ClientProfile, error) {
	profile, _, err := cache.GetOrSet(ctx, s.store, cache.ClientKey(userID), cache.TTLEntity, func() (*models.ClientProfile, error) {
		return s.repo.GetClientProfile(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return profile, nil
}

// UpdateFreelancer обновляет собственный профиль фрилансера.
// Поле ratings игнорируется: агрегат пишет только пересчёт оценок.
func (s *ProfileService) UpdateFreelancer(ctx context.Context, userID uuid.UUID, in *models.FreelancerProfile) (*models.FreelancerProfile, error) {
	if err := s.requireRole(ctx, userID, models.RoleFreelancer); err != nil {
		return nil, err
	}

	if err := validation.ValidateSkills(in.Skills); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBio(in.Bio); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	current, err := s.repo.GetFreelancerProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}

	current.DisplayName = in.DisplayName
	current.Bio = in.Bio
	current.Skills = in.Skills
	current.HourlyRate = in.HourlyRate
	current.Available = in.Available

	if err := s.repo.UpdateFreelancerProfile(ctx, current); err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}

	s.invalidateProfile(ctx, userID)
	return current, nil
}

// UpdateClient обновляет собственный профиль клиента.
func (s *ProfileService) UpdateClient(ctx context.Context, userID uuid.UUID, in *models.ClientProfile) (*models.ClientProfile, error) {
	if err := s.requireRole(ctx, userID, models.RoleClient); err != nil {
		return nil, err
	}

	if err := validation.ValidateBio(in.Bio); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	current, err := s.repo.GetClientProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}

	current.DisplayName = in.DisplayName
	current.CompanyName = in.CompanyName
	current.Bio = in.Bio

	if err := s.repo.UpdateClientProfile(ctx, current); err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}

	s.invalidateProfile(ctx, userID)
	return current, nil
}

// SetPhoto загружает фотографию профиля и подменяет старую.
func (s *ProfileService) SetPhoto(ctx context.Context, userID uuid.UUID, r io.Reader) (uuid.UUID, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return uuid.Nil, apperror.ErrUserNotFound
	}

	photoID, err := s.photos.Save(ctx, r)
	if err != nil {
		return uuid.Nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var oldPhoto *uuid.UUID
	switch user.Role {
	case models.RoleFreelancer:
		profile, err := s.repo.GetFreelancerProfile(ctx, userID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("profile service: %w", err)
		}
		oldPhoto = profile.PhotoID
		profile.PhotoID = &photoID
		if err := s.repo.UpdateFreelancerProfile(ctx, profile); err != nil {
			return uuid.Nil, fmt.Errorf("profile service: %w", err)
		}
	case models.RoleClient:
		profile, err := s.repo.GetClientProfile(ctx, userID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("profile service: %w", err)
		}
		oldPhoto = profile.PhotoID
		profile.PhotoID = &photoID
		if err := s.repo.UpdateClientProfile(ctx, profile); err != nil {
			return uuid.Nil, fmt.Errorf("profile service: %w", err)
		}
	default:
		return uuid.Nil, apperror.ErrForbidden
	}

	if oldPhoto != nil {
		if err := s.photos.Delete(ctx, *oldPhoto); err != nil {
			logger.WithComponent("profile").WithError(err).
				WithField("photo_id", *oldPhoto).Warn("не удалось удалить старую фотографию")
		}
	}

	s.invalidateProfile(ctx, userID)
	return photoID, nil
}

// GetPhoto возвращает содержимое фотографии и её MIME-тип.
func (s *ProfileService) GetPhoto(ctx context.Context, photoID uuid.UUID) ([]byte, string, error) {
	data, mime, err := s.photos.Open(ctx, photoID)
	if err != nil {
		return nil, "", apperror.Wrap(err, apperror.ErrCodeNotFound, "фотография не найдена")
	}
	return data, mime, nil
}

// FeaturedFreelancers возвращает витрину лучших фрилансеров.
func (s *ProfileService) FeaturedFreelancers(ctx context.Context) ([]models.FreelancerProfile, error) {
	result, _, err := cache.GetOrSet(ctx, s.store, cache.FeaturedFreelancersKey(), cache.TTLList, func() ([]models.FreelancerProfile, error) {
		return s.repo.ListFeaturedFreelancers(ctx, featuredFreelancersLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return result, nil
}

// PlatformStats возвращает агрегированную статистику платформы.
func (s *ProfileService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	result, _, err := cache.GetOrSet(ctx, s.store, cache.PlatformStatsKey(), cache.TTLStats, func() (*models.PlatformStats, error) {
		return s.repo.GetPlatformStats(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return result, nil
}

func (s *ProfileService) invalidateProfile(ctx context.Context, userID uuid.UUID) {
	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:   cache.MutationProfileUpdated,
		UserID: &userID,
	})
}

func (s *ProfileService) requireRole(ctx context.Context, userID uuid.UUID, role string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return fmt.Errorf("profile service: %w", err)
	}
	if !user.IsActive {
		return apperror.ErrAccountInactive
	}
	if user.Role != role {
		return apperror.ErrForbidden
	}
	return nil
}
