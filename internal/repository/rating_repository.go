package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/repository/common"
)

// ErrRatingNotFound возвращается, когда оценка не найдена.
var ErrRatingNotFound = errors.New("rating not found")

// ErrDuplicateRating возвращается при повторной оценке того же участника
// по тому же проекту.
var ErrDuplicateRating = errors.New("rating already exists for this project and pair")

// RatingRepository отвечает за таблицу ratings и синхронный пересчёт
// агрегата в профиле оценённого пользователя.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository создаёт экземпляр репозитория.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// CreateWithAggregate вставляет оценку и в той же транзакции пересчитывает
// средний балл профиля через agg. Читатель никогда не видит новую оценку
// без обновлённого агрегата.
func (r *RatingRepository) CreateWithAggregate(ctx context.Context, rating *models.Rating, agg func(scores []int) float64) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO ratings (project_id, rater_id, rated_id, type, score, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			rating.ProjectID, rating.RaterID, rating.RatedID, rating.Type, rating.Score, rating.Comment,
		).Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt)
		if err != nil {
			if common.IsUniqueViolation(err) {
				return ErrDuplicateRating
			}
			return fmt.Errorf("rating repository: create: %w", err)
		}

		return r.recomputeAggregate(ctx, tx, rating.RatedID, rating.Type, agg)
	})
}

// UpdateWithAggregate меняет балл и комментарий существующей оценки
// и пересчитывает агрегат в той же транзакции.
func (r *RatingRepository) UpdateWithAggregate(ctx context.Context, rating *models.Rating, agg func(scores []int) float64) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE ratings SET score = $2, comment = $3, updated_at = NOW()
			WHERE id = $1
		`, rating.ID, rating.Score, rating.Comment)
		if err != nil {
			return fmt.Errorf("rating repository: update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRatingNotFound
		}

		return r.recomputeAggregate(ctx, tx, rating.RatedID, rating.Type, agg)
	})
}

// recomputeAggregate читает все баллы пользователя в данном направлении
// и записывает результат agg в профиль. Полный проход по оценкам
// намеренный: источником истины остаётся таблица ratings, а не
// накопленный счётчик, который может разойтись.
func (r *RatingRepository) recomputeAggregate(ctx context.Context, tx *sqlx.Tx, ratedID uuid.UUID, ratingType string, agg func(scores []int) float64) error {
	profileTable := "client_profiles"
	if ratingType == models.RatingTypeClientToFreelancer {
		profileTable = "freelancer_profiles"
	}

	// Блокировка строки профиля до чтения баллов. Конкурентные записи
	// для того же пользователя сериализуются здесь, а не на финальном
	// UPDATE: под READ COMMITTED ожидающая транзакция перечитывает баллы
	// уже после коммита соперника и не теряет его оценку.
	var lockedID uuid.UUID
	lockQuery := fmt.Sprintf("SELECT user_id FROM %s WHERE user_id = $1 FOR UPDATE", profileTable)
	if err := tx.GetContext(ctx, &lockedID, lockQuery, ratedID); err != nil {
		return fmt.Errorf("rating repository: lock profile: %w", err)
	}

	var scores []int
	err := tx.SelectContext(ctx, &scores,
		"SELECT score FROM ratings WHERE rated_id = $1 AND type = $2 ORDER BY created_at",
		ratedID, ratingType,
	)
	if err != nil {
		return fmt.Errorf("rating repository: load scores: %w", err)
	}

	query := fmt.Sprintf("UPDATE %s SET ratings = $2, updated_at = NOW() WHERE user_id = $1", profileTable)
	if _, err := tx.ExecContext(ctx, query, ratedID, agg(scores)); err != nil {
		return fmt.Errorf("rating repository: update aggregate: %w", err)
	}
	return nil
}

// GetByID возвращает оценку по идентификатору.
func (r *RatingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rating, error) {
	return common.GetByID[models.Rating](ctx, r.db, "ratings", id, ErrRatingNotFound)
}

// GetByProjectPair возвращает оценку по тройке (проект, оценивающий, оценённый).
func (r *RatingRepository) GetByProjectPair(ctx context.Context, projectID, raterID, ratedID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.GetContext(ctx, &rating,
		"SELECT * FROM ratings WHERE project_id = $1 AND rater_id = $2 AND rated_id = $3",
		projectID, raterID, ratedID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("rating repository: get by pair: %w", err)
	}
	return &rating, nil
}

// ListByRated возвращает страницу оценок, полученных пользователем.
func (r *RatingRepository) ListByRated(ctx context.Context, ratedID uuid.UUID, page, pageSize int) (*models.RatingPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM ratings WHERE rated_id = $1", ratedID); err != nil {
		return nil, fmt.Errorf("rating repository: count: %w", err)
	}

	var ratings []models.Rating
	err := r.db.SelectContext(ctx, &ratings,
		"SELECT * FROM ratings WHERE rated_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		ratedID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("rating repository: list: %w", err)
	}

	return &models.RatingPage{
		Ratings:  ratings,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
