package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/repository/common"
)

// ErrProjectNotFound возвращается, когда проект не найден.
var ErrProjectNotFound = errors.New("project not found")

// ErrProjectStatusConflict возвращается, когда условное обновление статуса
// не нашло строку в ожидаемом состоянии: проект конкурентно изменился.
var ErrProjectStatusConflict = errors.New("project is not in the expected status")

// ProjectRepository отвечает за таблицу projects и связанные
// транзакционные обновления счётчиков профилей.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository создаёт экземпляр репозитория.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create создаёт проект и инкрементирует projects_posted клиента в одной транзакции.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO projects (client_id, title, description, status, budget_min, budget_max, skills_required, deadline_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(ctx, query,
			project.ClientID, project.Title, project.Description, project.Status,
			project.BudgetMin, project.BudgetMax, pq.Array([]string(project.SkillsRequired)), project.DeadlineAt,
		).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return fmt.Errorf("project repository: create: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE client_profiles SET projects_posted = projects_posted + 1, updated_at = NOW()
			WHERE user_id = $1
		`, project.ClientID); err != nil {
			return fmt.Errorf("project repository: increment projects_posted: %w", err)
		}

		return nil
	})
}

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return common.GetByID[models.Project](ctx, r.db, "projects", id, ErrProjectNotFound)
}

// Update обновляет редактируемые поля проекта. Статусом управляют
// исключительно UpdateStatus и Complete.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET title = $2, description = $3, budget_min = $4, budget_max = $5,
		    skills_required = $6, deadline_at = $7, updated_at = NOW()
		WHERE id = $1
	`, project.ID, project.Title, project.Description, project.BudgetMin, project.BudgetMax,
		pq.Array([]string(project.SkillsRequired)), project.DeadlineAt)
	if err != nil {
		return fmt.Errorf("project repository: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// UpdateStatus выполняет условный переход статуса: строка обновляется
// только если текущий статус равен from. Ноль затронутых строк означает,
// что состояние изменилось конкурентно - вызывающий получает конфликт,
// никакая запись не происходит.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, projectID uuid.UUID, from, to models.ProjectStatus, reason *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET status = $3, rejected_reason = COALESCE($4, rejected_reason), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, projectID, from, to, reason)
	if err != nil {
		return fmt.Errorf("project repository: update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectStatusConflict
	}
	return nil
}

// Complete переводит проект pending_completion -> completed и инкрементирует
// projects_completed исполнителя. Обе записи атомарны: не существует окна,
// где проект завершён, а счётчик не обновлён.
func (r *ProjectRepository) Complete(ctx context.Context, projectID, freelancerID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2 AND assigned_to = $4
		`, projectID, models.ProjectStatusPendingCompletion, models.ProjectStatusCompleted, freelancerID)
		if err != nil {
			return fmt.Errorf("project repository: complete: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrProjectStatusConflict
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE freelancer_profiles SET projects_completed = projects_completed + 1, updated_at = NOW()
			WHERE user_id = $1
		`, freelancerID); err != nil {
			return fmt.Errorf("project repository: increment projects_completed: %w", err)
		}

		return nil
	})
}

// List возвращает страницу проектов с фильтром по статусу.
// Пустой статус - без фильтра.
func (r *ProjectRepository) List(ctx context.Context, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	return r.listWhere(ctx, "", nil, status, page, pageSize)
}

// ListByClient возвращает страницу проектов клиента.
func (r *ProjectRepository) ListByClient(ctx context.Context, clientID uuid.UUID, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	return r.listWhere(ctx, "client_id", clientID, status, page, pageSize)
}

// ListByFreelancer возвращает страницу проектов, назначенных фрилансеру.
func (r *ProjectRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	return r.listWhere(ctx, "assigned_to", freelancerID, status, page, pageSize)
}

func (r *ProjectRepository) listWhere(ctx context.Context, ownerField string, ownerID interface{}, status models.ProjectStatus, page, pageSize int) (*models.ProjectPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := "TRUE"
	args := []interface{}{}
	idx := 1

	if ownerField != "" {
		where += fmt.Sprintf(" AND %s = $%d", ownerField, idx)
		args = append(args, ownerID)
		idx++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM projects WHERE " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("project repository: count: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT * FROM projects WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, idx, idx+1,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, fmt.Errorf("project repository: list: %w", err)
	}

	return &models.ProjectPage{
		Projects: projects,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
