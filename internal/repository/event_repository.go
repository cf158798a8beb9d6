package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-event-management/internal/model"
	apperrors "go-gin-event-management/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error)
	ListByOwner(ctx context.Context, ownerID int) ([]*model.Event, error)
	ListByParticipant(ctx context.Context, userID int) ([]*model.Event, error)
	ListParticipants(ctx context.Context, eventID int) ([]*model.UserSummary, error)

	// Transaction methods
	FindByEventIDWithLock(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*model.Event, error)
	Update(ctx context.Context, tx pgx.Tx, id int, params model.UpdateEventParams) error
	Delete(ctx context.Context, tx pgx.Tx, id int) error
	AddParticipant(ctx context.Context, tx pgx.Tx, eventID int, userID int) error
	RemoveParticipant(ctx context.Context, tx pgx.Tx, eventID int, userID int) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

const eventColumns = `
	e.id, e.event_id, e.title, e.description, e.category, e.price, e.location,
	e.status, e.capacity, e.start_date, e.end_date, e.owner_id, e.created_at, e.updated_at,
	u.user_id, u.first_name, u.last_name, u.email`

const participantCountColumn = `
	(SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id) AS participant_count`

const eventSelect = `SELECT ` + eventColumns + `, ` + participantCountColumn + `
	FROM events e
	JOIN users u ON u.id = e.owner_id`

func eventScanTargets(event *model.Event, owner *model.UserSummary) []interface{} {
	return []interface{}{
		&event.ID,
		&event.EventID,
		&event.Title,
		&event.Description,
		&event.Category,
		&event.Price,
		&event.Location,
		&event.Status,
		&event.Capacity,
		&event.StartDate,
		&event.EndDate,
		&event.OwnerID,
		&event.CreatedAt,
		&event.UpdatedAt,
		&owner.UserID,
		&owner.FirstName,
		&owner.LastName,
		&owner.Email,
	}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	var owner model.UserSummary

	targets := append(eventScanTargets(&event, &owner), &event.ParticipantCount)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	event.Owner = &owner
	return &event, nil
}

func collectEvents(rows pgx.Rows) ([]*model.Event, error) {
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			event_id, title, description, category, price, location,
			status, capacity, start_date, end_date, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		event.EventID, event.Title, event.Description, event.Category, event.Price, event.Location,
		event.Status, event.Capacity, event.StartDate, event.EndDate, event.OwnerID,
	).Scan(
		&event.ID,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepositoryImpl) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	query := eventSelect + ` WHERE e.event_id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, eventID))
}

// escapeLike 跳脫 LIKE 萬用字元，讓搜尋字串以字面比對
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func buildEventWhere(filter model.EventFilter) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("e.category = $%d", argPos))
		args = append(args, filter.Category)
		argPos++
	}

	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("e.status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		conds = append(conds, fmt.Sprintf("(e.title ILIKE $%d OR e.description ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+escapeLike(search)+"%")
		argPos++
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *EventRepositoryImpl) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) {
	filter = filter.Normalize()
	where, args := buildEventWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM events e` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := fmt.Sprintf(`%s%s
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $%d OFFSET $%d
	`, eventSelect, where, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, filter.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *EventRepositoryImpl) ListByOwner(ctx context.Context, ownerID int) ([]*model.Event, error) {
	query := eventSelect + `
		WHERE e.owner_id = $1
		ORDER BY e.created_at DESC, e.id DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events by owner: %w", err)
	}
	return collectEvents(rows)
}

func (r *EventRepositoryImpl) ListByParticipant(ctx context.Context, userID int) ([]*model.Event, error) {
	query := eventSelect + `
		JOIN event_participants ep ON ep.event_id = e.id
		WHERE ep.user_id = $1
		ORDER BY e.start_date ASC, e.id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list events by participant: %w", err)
	}
	return collectEvents(rows)
}

// ListParticipants 依報名先後順序（FIFO）列出參加者
func (r *EventRepositoryImpl) ListParticipants(ctx context.Context, eventID int) ([]*model.UserSummary, error) {
	query := `
		SELECT u.user_id, u.first_name, u.last_name, u.email
		FROM event_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.event_id = $1
		ORDER BY p.id ASC
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*model.UserSummary, 0)
	for rows.Next() {
		var p model.UserSummary
		if err := rows.Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email); err != nil {
			return nil, err
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

// FindByEventIDWithLock 鎖定活動列並載入目前的報名名單，同一活動的異動在 transaction 內序列化
func (r *EventRepositoryImpl) FindByEventIDWithLock(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		JOIN users u ON u.id = e.owner_id
		WHERE e.event_id = $1
		FOR UPDATE OF e
	`

	var event model.Event
	var owner model.UserSummary
	err := tx.QueryRow(ctx, query, eventID).Scan(eventScanTargets(&event, &owner)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	event.Owner = &owner

	rows, err := tx.Query(ctx, `SELECT user_id FROM event_participants WHERE event_id = $1 ORDER BY id ASC`, event.ID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	event.ParticipantIDs = ids
	event.ParticipantCount = len(ids)
	return &event, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, tx pgx.Tx, id int, params model.UpdateEventParams) error {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if params.Title != nil {
		add("title", *params.Title)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.Category != nil {
		add("category", *params.Category)
	}
	if params.Price != nil {
		add("price", *params.Price)
	}
	if params.Location != nil {
		add("location", *params.Location)
	}
	if params.Capacity != nil {
		add("capacity", *params.Capacity)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.StartDate != nil {
		add("start_date", *params.StartDate)
	}
	if params.EndDate != nil {
		add("end_date", *params.EndDate)
	}

	if len(sets) == 0 {
		return apperrors.ErrInvalidInput
	}

	// add updated_at
	add("updated_at", time.Now().UTC())

	// add id
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s
		WHERE id = $%d
	`, strings.Join(sets, ", "), argPos)

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, id int) error {
	result, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// AddParticipant 條件式寫入：未滿額且尚未報名才會新增
func (r *EventRepositoryImpl) AddParticipant(ctx context.Context, tx pgx.Tx, eventID int, userID int) error {
	query := `
		INSERT INTO event_participants (event_id, user_id)
		SELECT e.id, $2
		FROM events e
		WHERE e.id = $1
		  AND (SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id) < e.capacity
		ON CONFLICT (event_id, user_id) DO NOTHING
	`

	result, err := tx.Exec(ctx, query, eventID, userID)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_participants WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if exists {
		return apperrors.ErrAlreadyRegistered
	}
	return apperrors.ErrEventFull
}

func (r *EventRepositoryImpl) RemoveParticipant(ctx context.Context, tx pgx.Tx, eventID int, userID int) error {
	result, err := tx.Exec(ctx,
		`DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotRegistered
	}
	return nil
}
