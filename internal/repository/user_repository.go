package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/repository/common"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken возвращается при попытке повторной регистрации email.
var ErrEmailTaken = errors.New("email already registered")

// ErrAdminNotFound возвращается, когда у пользователя нет записи администратора.
var ErrAdminNotFound = errors.New("admin record not found")

// ErrSessionNotFound возвращается, когда refresh-сессия не найдена.
var ErrSessionNotFound = errors.New("session not found")

// UserRepository отвечает за работу с таблицами users, freelancer_profiles,
// client_profiles, admins и user_sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт пользователя и профиль его роли в одной транзакции.
// Ровно один из профилей {freelancer, client} существует у не-админа.
func (r *UserRepository) Create(ctx context.Context, user *models.User, displayName string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (email, username, password_hash, role, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, query,
			user.Email, user.Username, user.PasswordHash, user.Role,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if common.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("user repository: create: %w", err)
		}
		user.IsActive = true

		switch user.Role {
		case models.RoleFreelancer:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO freelancer_profiles (user_id, display_name, skills, available)
				VALUES ($1, $2, '{}', TRUE)
			`, user.ID, displayName)
			if err != nil {
				return fmt.Errorf("user repository: create freelancer profile: %w", err)
			}
		case models.RoleClient:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO client_profiles (user_id, display_name)
				VALUES ($1, $2)
			`, user.ID, displayName)
			if err != nil {
				return fmt.Errorf("user repository: create client profile: %w", err)
			}
		}

		return nil
	})
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// SetActive включает или блокирует пользователя. Только для админских действий.
func (r *UserRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, userID, active)
	if err != nil {
		return fmt.Errorf("user repository: set active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetEmailVerified отмечает email пользователя подтверждённым.
func (r *UserRepository) SetEmailVerified(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("user repository: set email verified: %w", err)
	}
	return nil
}

// UpdatePassword меняет хэш пароля пользователя.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("user repository: update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastLoginAt обновляет отметку последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = NOW() WHERE id = $1
	`, userID)
	return err
}

// GetFreelancerProfile возвращает профиль фрилансера.
func (r *UserRepository) GetFreelancerProfile(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error) {
	return common.GetByField[models.FreelancerProfile](ctx, r.db, "freelancer_profiles", "user_id", userID, ErrUserNotFound)
}

// GetClientProfile возвращает профиль клиента.
func (r *UserRepository) GetClientProfile(ctx context.Context, userID uuid.UUID) (*models.ClientProfile, error) {
	return common.GetByField[models.ClientProfile](ctx, r.db, "client_profiles", "user_id", userID, ErrUserNotFound)
}

// UpdateFreelancerProfile обновляет редактируемые поля профиля фрилансера.
// Поле ratings пересчитывается агрегатором и здесь не трогается.
func (r *UserRepository) UpdateFreelancerProfile(ctx context.Context, p *models.FreelancerProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE freelancer_profiles
		SET display_name = $2, bio = $3, skills = $4, hourly_rate = $5,
		    available = $6, photo_id = $7, updated_at = NOW()
		WHERE user_id = $1
	`, p.UserID, p.DisplayName, p.Bio, pq.Array([]string(p.Skills)), p.HourlyRate, p.Available, p.PhotoID)
	if err != nil {
		return fmt.Errorf("user repository: update freelancer profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateClientProfile обновляет редактируемые поля профиля клиента.
func (r *UserRepository) UpdateClientProfile(ctx context.Context, p *models.ClientProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE client_profiles
		SET display_name = $2, company_name = $3, bio = $4, photo_id = $5, updated_at = NOW()
		WHERE user_id = $1
	`, p.UserID, p.DisplayName, p.CompanyName, p.Bio, p.PhotoID)
	if err != nil {
		return fmt.Errorf("user repository: update client profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetAdmin возвращает запись администратора с его правами.
func (r *UserRepository) GetAdmin(ctx context.Context, userID uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("user repository: get admin: %w", err)
	}
	return &admin, nil
}

// ListFeaturedFreelancers возвращает витрину лучших фрилансеров.
func (r *UserRepository) ListFeaturedFreelancers(ctx context.Context, limit int) ([]models.FreelancerProfile, error) {
	var profiles []models.FreelancerProfile
	err := r.db.SelectContext(ctx, &profiles, `
		SELECT fp.* FROM freelancer_profiles fp
		JOIN users u ON u.id = fp.user_id
		WHERE u.is_active AND fp.available
		ORDER BY fp.ratings DESC, fp.projects_completed DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("user repository: list featured freelancers: %w", err)
	}
	return profiles, nil
}

// GetPlatformStats собирает агрегатную статистику платформы.
func (r *UserRepository) GetPlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	var stats models.PlatformStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'client' AND is_active)       AS total_clients,
			(SELECT COUNT(*) FROM users WHERE role = 'freelancer' AND is_active)   AS total_freelancers,
			(SELECT COUNT(*) FROM projects WHERE status = 'open')                  AS open_projects,
			(SELECT COUNT(*) FROM projects WHERE status = 'completed')             AS completed_projects,
			(SELECT COUNT(*) FROM applications)                                    AS total_applications,
			(SELECT COUNT(*) FROM ratings)                                         AS total_ratings
	`)
	if err != nil {
		return nil, fmt.Errorf("user repository: platform stats: %w", err)
	}
	return &stats, nil
}

// CreateSession сохраняет refresh-сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken)
	return err
}

// GetSessionByToken возвращает сессию по refresh токену.
func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM user_sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("user repository: get session: %w", err)
	}
	return &session, nil
}
