package repository

import (
	"context"
	"fmt"

	"go-gin-event-management/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepository interface {
	// Create 以 activity_id 去重，重送的訊息不會產生重複紀錄
	Create(ctx context.Context, activity *model.RegistrationActivity) error
	ListByEventID(ctx context.Context, eventID uuid.UUID) ([]*model.RegistrationActivity, error)
}

type ActivityRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &ActivityRepositoryImpl{
		pool: pool,
	}
}

func (r *ActivityRepositoryImpl) Create(ctx context.Context, activity *model.RegistrationActivity) error {
	query := `
		INSERT INTO registration_activities (activity_id, event_id, user_id, action, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (activity_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		activity.ActivityID, activity.EventID, activity.UserID, activity.Action, activity.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepositoryImpl) ListByEventID(ctx context.Context, eventID uuid.UUID) ([]*model.RegistrationActivity, error) {
	query := `
		SELECT activity_id, event_id, user_id, action, occurred_at
		FROM registration_activities
		WHERE event_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*model.RegistrationActivity, 0)
	for rows.Next() {
		var a model.RegistrationActivity
		if err := rows.Scan(&a.ActivityID, &a.EventID, &a.UserID, &a.Action, &a.OccurredAt); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}
