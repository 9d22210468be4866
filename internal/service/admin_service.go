package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/logger"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
)

// AdminRepo операции репозитория, нужные административному сервису.
type AdminRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAdmin(ctx context.Context, userID uuid.UUID) (*models.Admin, error)
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}

// AdminService выполняет административные действия над пользователями.
// Модерация проектов живёт в ProjectService: это переходы статусов.
type AdminService struct {
	repo    AdminRepo
	planner Invalidator
}

// NewAdminService создаёт административный сервис.
func NewAdminService(repo AdminRepo, planner Invalidator) *AdminService {
	return &AdminService{repo: repo, planner: planner}
}

// SetUserActive включает или блокирует аккаунт пользователя.
// Требует права users:manage. Блокировка действует на все мутации
// пользователя системно: guard-проверки сервисов читают is_active.
func (s *AdminService) SetUserActive(ctx context.Context, adminID, userID uuid.UUID, active bool) error {
	if err := s.requirePermission(ctx, adminID, models.AdminPermissionManageUsers); err != nil {
		return err
	}

	target, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return fmt.Errorf("admin service: %w", err)
	}
	if target.Role == models.RoleAdmin {
		return apperror.New(apperror.ErrCodeForbidden, "нельзя блокировать администратора")
	}

	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return fmt.Errorf("admin service: %w", err)
	}

	logger.WithComponent("admin").WithFields(map[string]interface{}{
		"admin_id": adminID,
		"user_id":  userID,
		"active":   active,
	}).Info("изменён статус аккаунта")

	// Роль заблокированного не важна для планировщика: перечисляем ключи
	// обеих ролей, лишнее удаление безвредно.
	s.planner.Invalidate(ctx, cache.Mutation{
		Kind:         cache.MutationUserModerated,
		ClientID:     userID,
		FreelancerID: &userID,
		UserID:       &userID,
	})

	return nil
}

func (s *AdminService) requirePermission(ctx context.Context, adminID uuid.UUID, perm string) error {
	user, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return fmt.Errorf("admin service: %w", err)
	}
	if !user.IsActive {
		return apperror.ErrAccountInactive
	}

	admin, err := s.repo.GetAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return apperror.ErrForbidden
		}
		return fmt.Errorf("admin service: %w", err)
	}
	if !admin.HasPermission(perm) {
		return apperror.ErrForbidden
	}
	return nil
}
