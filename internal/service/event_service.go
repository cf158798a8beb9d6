package service

import (
	"context"
	"strings"
	"time"

	"go-gin-event-management/internal/metrics"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/queue"
	"go-gin-event-management/internal/repository"
	apperrors "go-gin-event-management/pkg/app_errors"
	"go-gin-event-management/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type EventService interface {
	Create(ctx context.Context, owner *model.User, params model.CreateEventParams) (*model.Event, error)
	// 部分更新：只有 owner 可以修改
	Update(ctx context.Context, eventID uuid.UUID, requester *model.User, params model.UpdateEventParams) (*model.Event, error)
	// 刪除：owner 或 admin
	Delete(ctx context.Context, eventID uuid.UUID, requester *model.User) error
	// 報名 / 取消報名：鎖定活動列後檢查名額與名單
	Register(ctx context.Context, eventID uuid.UUID, requester *model.User) (*model.Event, error)
	CancelRegistration(ctx context.Context, eventID uuid.UUID, requester *model.User) (*model.Event, error)
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) (*model.EventPage, error)
	ListMine(ctx context.Context, requester *model.User) ([]*model.Event, error)
	ListRegistered(ctx context.Context, requester *model.User) ([]*model.Event, error)
	ListActivity(ctx context.Context, eventID uuid.UUID, requester *model.User) ([]*model.RegistrationActivity, error)
}

type EventServiceImpl struct {
	transactor   repository.Transactor
	repository   repository.EventRepository
	activityRepo repository.ActivityRepository
	queue        queue.ActivityQueue
	policy       CancellationPolicy
	now          func() time.Time
}

type EventServiceOption func(*EventServiceImpl)

// WithCancellationPolicy 設定取消報名的額外限制；未設定時隨時可取消
func WithCancellationPolicy(policy CancellationPolicy) EventServiceOption {
	return func(s *EventServiceImpl) {
		s.policy = policy
	}
}

func WithClock(now func() time.Time) EventServiceOption {
	return func(s *EventServiceImpl) {
		s.now = now
	}
}

// NewEventService activityQueue 可為 nil，此時不產生報名紀錄
func NewEventService(
	transactor repository.Transactor,
	eventRepository repository.EventRepository,
	activityRepository repository.ActivityRepository,
	activityQueue queue.ActivityQueue,
	opts ...EventServiceOption,
) EventService {
	s := &EventServiceImpl{
		transactor:   transactor,
		repository:   eventRepository,
		activityRepo: activityRepository,
		queue:        activityQueue,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EventServiceImpl) Create(ctx context.Context, owner *model.User, params model.CreateEventParams) (*model.Event, error) {
	if owner == nil {
		return nil, apperrors.ErrUnauthorized
	}

	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	if title == "" || description == "" || params.Category == "" || params.Price == nil ||
		params.StartDate.IsZero() || params.EndDate.IsZero() {
		return nil, apperrors.ErrMissingFields
	}
	if !params.Category.IsValid() {
		return nil, apperrors.Validation("Invalid event category")
	}
	if *params.Price < 0 {
		return nil, apperrors.Validation("Price must be a non-negative number")
	}

	capacity := model.DefaultCapacity
	if params.Capacity != nil {
		capacity = *params.Capacity
	}
	if capacity <= 0 {
		return nil, apperrors.Validation("Capacity must be greater than 0")
	}
	if params.EndDate.Before(params.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	event := &model.Event{
		EventID:        uuid.New(),
		Title:          title,
		Description:    description,
		Category:       params.Category,
		Price:          *params.Price,
		Location:       trimmedOrNil(params.Location),
		Status:         model.EventStatusDraft,
		Capacity:       capacity,
		StartDate:      params.StartDate.UTC(),
		EndDate:        params.EndDate.UTC(),
		OwnerID:        owner.ID,
		ParticipantIDs: []int{},
	}

	created, err := s.repository.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	created.Owner = owner.Summary()
	return created, nil
}

// normalizeUpdate 空字串、0、零值時間視為未提供，沿用原值
func normalizeUpdate(p model.UpdateEventParams) model.UpdateEventParams {
	p.Title = trimmedOrNil(p.Title)
	p.Description = trimmedOrNil(p.Description)
	if p.Category != nil && *p.Category == "" {
		p.Category = nil
	}
	if p.Price != nil && *p.Price == 0 {
		p.Price = nil
	}
	p.Location = trimmedOrNil(p.Location)
	if p.Capacity != nil && *p.Capacity == 0 {
		p.Capacity = nil
	}
	if p.Status != nil && *p.Status == "" {
		p.Status = nil
	}
	if p.StartDate != nil && p.StartDate.IsZero() {
		p.StartDate = nil
	}
	if p.EndDate != nil && p.EndDate.IsZero() {
		p.EndDate = nil
	}
	return p
}

// validateUpdate 以套用後的結果檢查，event 必須是鎖定後讀到的最新狀態
func validateUpdate(event *model.Event, p model.UpdateEventParams) error {
	if p.Category != nil && !p.Category.IsValid() {
		return apperrors.Validation("Invalid event category")
	}
	if p.Price != nil && *p.Price < 0 {
		return apperrors.Validation("Price must be a non-negative number")
	}
	if p.Capacity != nil {
		if *p.Capacity < 0 {
			return apperrors.Validation("Capacity must be greater than 0")
		}
		if *p.Capacity < event.ParticipantCount {
			return apperrors.ErrCapacityBelowRoster
		}
	}

	start, end := event.StartDate, event.EndDate
	if p.StartDate != nil {
		start = *p.StartDate
	}
	if p.EndDate != nil {
		end = *p.EndDate
	}
	if end.Before(start) {
		return apperrors.ErrInvalidDateRange
	}

	if p.Status != nil {
		if !p.Status.IsValid() {
			return apperrors.Validation("Invalid event status")
		}
		if !event.Status.CanTransitionTo(*p.Status) {
			return apperrors.ErrInvalidStatusChange
		}
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func applyUpdate(event *model.Event, p model.UpdateEventParams, now time.Time) {
	if p.Title != nil {
		event.Title = *p.Title
	}
	if p.Description != nil {
		event.Description = *p.Description
	}
	if p.Category != nil {
		event.Category = *p.Category
	}
	if p.Price != nil {
		event.Price = *p.Price
	}
	if p.Location != nil {
		event.Location = p.Location
	}
	if p.Capacity != nil {
		event.Capacity = *p.Capacity
	}
	if p.Status != nil {
		event.Status = *p.Status
	}
	if p.StartDate != nil {
		event.StartDate = p.StartDate.UTC()
	}
	if p.EndDate != nil {
		event.EndDate = p.EndDate.UTC()
	}
	event.UpdatedAt = now
}

func (s *EventServiceImpl) Update(ctx context.Context, eventID uuid.UUID, requester *model.User, params model.UpdateEventParams) (*model.Event, error) {
	params = normalizeUpdate(params)

	var updated *model.Event
	err := s.transactor.WithinTx(ctx, func(tx pgx.Tx) error {
		event, err := s.repository.FindByEventIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := Authorize(requester, event, ActionUpdate).Err(); err != nil {
			return err
		}
		if err := validateUpdate(event, params); err != nil {
			return err
		}

		if !params.IsEmpty() {
			if err := s.repository.Update(ctx, tx, event.ID, params); err != nil {
				return err
			}
			applyUpdate(event, params, s.now().UTC())
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *EventServiceImpl) Delete(ctx context.Context, eventID uuid.UUID, requester *model.User) error {
	return s.transactor.WithinTx(ctx, func(tx pgx.Tx) error {
		event, err := s.repository.FindByEventIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := Authorize(requester, event, ActionDelete).Err(); err != nil {
			return err
		}
		return s.repository.Delete(ctx, tx, event.ID)
	})
}

func (s *EventServiceImpl) Register(ctx context.Context, eventID uuid.UUID, requester *model.User) (*model.Event, error) {
	if requester == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var registered *model.Event
	err := s.transactor.WithinTx(ctx, func(tx pgx.Tx) error {
		// 1. 鎖定活動列，同一活動的報名依序處理
		event, err := s.repository.FindByEventIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}

		// 2. 檢查狀態、重複報名與名額
		if event.Status != model.EventStatusPublished {
			return apperrors.ErrEventNotPublished
		}
		if event.HasParticipant(requester.ID) {
			return apperrors.ErrAlreadyRegistered
		}
		if event.IsFull() {
			return apperrors.ErrEventFull
		}

		// 3. 寫入名單
		if err := s.repository.AddParticipant(ctx, tx, event.ID, requester.ID); err != nil {
			return err
		}

		event.ParticipantIDs = append(event.ParticipantIDs, requester.ID)
		event.ParticipantCount = len(event.ParticipantIDs)
		registered = event
		return nil
	})
	metrics.RecordRegistration("register", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.publishActivity(ctx, registered, requester, model.ActivityRegistered)
	return registered, nil
}

func (s *EventServiceImpl) CancelRegistration(ctx context.Context, eventID uuid.UUID, requester *model.User) (*model.Event, error) {
	if requester == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var cancelled *model.Event
	err := s.transactor.WithinTx(ctx, func(tx pgx.Tx) error {
		event, err := s.repository.FindByEventIDWithLock(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.HasParticipant(requester.ID) {
			return apperrors.ErrNotRegistered
		}
		if s.policy != nil {
			if err := s.policy.Check(event, s.now()); err != nil {
				return err
			}
		}

		if err := s.repository.RemoveParticipant(ctx, tx, event.ID, requester.ID); err != nil {
			return err
		}

		remaining := make([]int, 0, len(event.ParticipantIDs))
		for _, id := range event.ParticipantIDs {
			if id != requester.ID {
				remaining = append(remaining, id)
			}
		}
		event.ParticipantIDs = remaining
		event.ParticipantCount = len(remaining)
		cancelled = event
		return nil
	})
	metrics.RecordRegistration("cancel", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.publishActivity(ctx, cancelled, requester, model.ActivityCancelled)
	return cancelled, nil
}

// publishActivity 交易已 commit，發送失敗只記錄 log，不影響報名結果
func (s *EventServiceImpl) publishActivity(ctx context.Context, event *model.Event, user *model.User, action model.ActivityAction) {
	if s.queue == nil {
		return
	}
	activity := model.NewRegistrationActivity(event, user, action, s.now())
	if err := s.queue.Publish(context.WithoutCancel(ctx), activity); err != nil {
		logger.WithComponent("service").Warn("failed to publish registration activity",
			zap.String("event_id", event.EventID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.KindOf(err))
}

func (s *EventServiceImpl) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.repository.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	participants, err := s.repository.ListParticipants(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	event.Participants = participants
	return event, nil
}

func (s *EventServiceImpl) List(ctx context.Context, filter model.EventFilter) (*model.EventPage, error) {
	filter = filter.Normalize()
	if filter.MatchesNothing() {
		return model.NewEventPage(nil, 0, filter), nil
	}

	events, total, err := s.repository.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.NewEventPage(events, total, filter), nil
}

func (s *EventServiceImpl) ListMine(ctx context.Context, requester *model.User) ([]*model.Event, error) {
	if requester == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.repository.ListByOwner(ctx, requester.ID)
}

func (s *EventServiceImpl) ListRegistered(ctx context.Context, requester *model.User) ([]*model.Event, error) {
	if requester == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.repository.ListByParticipant(ctx, requester.ID)
}

func (s *EventServiceImpl) ListActivity(ctx context.Context, eventID uuid.UUID, requester *model.User) ([]*model.RegistrationActivity, error) {
	event, err := s.repository.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(requester, event, ActionViewActivity).Err(); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByEventID(ctx, event.EventID)
}
