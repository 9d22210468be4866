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

// ErrMeetingRequestNotFound возвращается, когда запрос на встречу не найден.
var ErrMeetingRequestNotFound = errors.New("meeting request not found")

// ErrMeetingRequestDecided возвращается, когда запрос уже рассмотрен.
var ErrMeetingRequestDecided = errors.New("meeting request has already been decided")

// MeetingRepository отвечает за таблицы meeting_requests и meetings.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository создаёт экземпляр репозитория.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// CreateRequest создаёт запрос на встречу по отклику.
func (r *MeetingRepository) CreateRequest(ctx context.Context, req *models.MeetingRequest) error {
	query := `
		INSERT INTO meeting_requests (application_id, requested_by, proposed_at, note, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		req.ApplicationID, req.RequestedBy, req.ProposedAt, req.Note, req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("meeting repository: create request: %w", err)
	}
	return nil
}

// GetRequestByID возвращает запрос на встречу.
func (r *MeetingRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.MeetingRequest, error) {
	return common.GetByID[models.MeetingRequest](ctx, r.db, "meeting_requests", id, ErrMeetingRequestNotFound)
}

// Accept атомарно принимает pending запрос и создаёт встречу.
func (r *MeetingRepository) Accept(ctx context.Context, req *models.MeetingRequest, meetingURL *string) (*models.Meeting, error) {
	var meeting models.Meeting
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE meeting_requests SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`, req.ID, models.MeetingRequestStatusPending, models.MeetingRequestStatusAccepted)
		if err != nil {
			return fmt.Errorf("meeting repository: accept request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrMeetingRequestDecided
		}

		meeting = models.Meeting{
			ApplicationID: req.ApplicationID,
			RequestID:     &req.ID,
			ScheduledAt:   req.ProposedAt,
			MeetingURL:    meetingURL,
		}
		return tx.QueryRowxContext(ctx, `
			INSERT INTO meetings (application_id, request_id, scheduled_at, meeting_url)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, meeting.ApplicationID, meeting.RequestID, meeting.ScheduledAt, meeting.MeetingURL).
			Scan(&meeting.ID, &meeting.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// Decline отклоняет pending запрос на встречу.
func (r *MeetingRepository) Decline(ctx context.Context, requestID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE meeting_requests SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, requestID, models.MeetingRequestStatusPending, models.MeetingRequestStatusDeclined)
	if err != nil {
		return fmt.Errorf("meeting repository: decline request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMeetingRequestDecided
	}
	return nil
}

// ListByApplication возвращает запросы и назначенные встречи по отклику.
func (r *MeetingRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.MeetingRequest, []models.Meeting, error) {
	var requests []models.MeetingRequest
	err := r.db.SelectContext(ctx, &requests,
		"SELECT * FROM meeting_requests WHERE application_id = $1 ORDER BY created_at DESC",
		applicationID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("meeting repository: list requests: %w", err)
	}

	var meetings []models.Meeting
	err = r.db.SelectContext(ctx, &meetings,
		"SELECT * FROM meetings WHERE application_id = $1 ORDER BY scheduled_at",
		applicationID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("meeting repository: list meetings: %w", err)
	}

	return requests, meetings, nil
}
