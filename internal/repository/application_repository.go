package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/repository/common"
)

// ErrApplicationNotFound возвращается, когда отклик не найден.
var ErrApplicationNotFound = errors.New("application not found")

// ErrDuplicateApplication возвращается при повторном отклике на тот же проект.
var ErrDuplicateApplication = errors.New("application already exists for this project")

// ErrApplicationDecided возвращается, когда отклик уже в конечном состоянии.
var ErrApplicationDecided = errors.New("application has already been decided")

// ApplicationRepository отвечает за таблицу applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository создаёт экземпляр репозитория.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create создаёт отклик. Уникальный индекс (project_id, freelancer_id)
// страхует от гонки двух одновременных откликов одного фрилансера.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (project_id, freelancer_id, cover_letter, proposed_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		app.ProjectID, app.FreelancerID, app.CoverLetter, app.ProposedAmount, app.Status,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return ErrDuplicateApplication
		}
		return fmt.Errorf("application repository: create: %w", err)
	}
	return nil
}

// GetByID возвращает отклик по идентификатору.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return common.GetByID[models.Application](ctx, r.db, "applications", id, ErrApplicationNotFound)
}

// Approve атомарно одобряет отклик: проект переходит open -> assigned с
// назначением исполнителя, сам отклик становится approved, а все остальные
// pending отклики проекта - rejected. Возвращает идентификаторы фрилансеров,
// чьи отклики были отклонены: их списки нужно инвалидировать.
//
// Условный UPDATE проекта стоит первым: если проект уже не open, транзакция
// откатывается до единой записи, и конкурентное одобрение второго отклика
// детерминированно получает конфликт.
func (r *ApplicationRepository) Approve(ctx context.Context, app *models.Application) (siblings []uuid.UUID, err error) {
	err = common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET status = $3, assigned_to = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`, app.ProjectID, models.ProjectStatusOpen, models.ProjectStatusAssigned, app.FreelancerID)
		if err != nil {
			return fmt.Errorf("application repository: assign project: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrProjectStatusConflict
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE applications
			SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`, app.ID, models.ApplicationStatusPending, models.ApplicationStatusApproved)
		if err != nil {
			return fmt.Errorf("application repository: approve: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrApplicationDecided
		}

		rows, err := tx.QueryxContext(ctx, `
			UPDATE applications
			SET status = $3, updated_at = NOW()
			WHERE project_id = $1 AND status = $2 AND id <> $4
			RETURNING freelancer_id
		`, app.ProjectID, models.ApplicationStatusPending, models.ApplicationStatusRejected, app.ID)
		if err != nil {
			return fmt.Errorf("application repository: reject siblings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var freelancerID uuid.UUID
			if err := rows.Scan(&freelancerID); err != nil {
				return fmt.Errorf("application repository: scan sibling: %w", err)
			}
			siblings = append(siblings, freelancerID)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return siblings, nil
}

// Reject отклоняет одиночный pending отклик. Проект не затрагивается.
func (r *ApplicationRepository) Reject(ctx context.Context, applicationID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, applicationID, models.ApplicationStatusPending, models.ApplicationStatusRejected)
	if err != nil {
		return fmt.Errorf("application repository: reject: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrApplicationDecided
	}
	return nil
}

// ListByProject возвращает страницу откликов на проект.
func (r *ApplicationRepository) ListByProject(ctx context.Context, projectID uuid.UUID, status models.ApplicationStatus, page, pageSize int) (*models.ApplicationPage, error) {
	return r.listWhere(ctx, "project_id", projectID, status, page, pageSize)
}

// ListByFreelancer возвращает страницу откликов фрилансера.
func (r *ApplicationRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status models.ApplicationStatus, page, pageSize int) (*models.ApplicationPage, error) {
	return r.listWhere(ctx, "freelancer_id", freelancerID, status, page, pageSize)
}

func (r *ApplicationRepository) listWhere(ctx context.Context, ownerField string, ownerID uuid.UUID, status models.ApplicationStatus, page, pageSize int) (*models.ApplicationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := fmt.Sprintf("%s = $1", ownerField)
	args := []interface{}{ownerID}
	if status != "" {
		where += " AND status = $2"
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications WHERE "+where, args...); err != nil {
		return nil, fmt.Errorf("application repository: count: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT * FROM applications WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, listQuery, args...); err != nil {
		return nil, fmt.Errorf("application repository: list: %w", err)
	}

	return &models.ApplicationPage{
		Applications: apps,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
	}, nil
}
