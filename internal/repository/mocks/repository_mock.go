package mocks

import (
	"context"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// TransactorMock 直接以 nil tx 執行 fn，搭配 repository mock 使用
type TransactorMock struct{}

func (TransactorMock) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type UserRepositoryMock struct {
	mock.Mock
}

func NewUserRepositoryMock() *UserRepositoryMock {
	return &UserRepositoryMock{}
}

func (m *UserRepositoryMock) Create(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepositoryMock) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *UserRepositoryMock) FindByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepositoryMock) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepositoryMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepositoryMock) Update(ctx context.Context, id int, params repository.UpdateUserParams) (*model.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type EventRepositoryMock struct {
	mock.Mock
}

func NewEventRepositoryMock() *EventRepositoryMock {
	return &EventRepositoryMock{}
}

func (m *EventRepositoryMock) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*model.Event), args.Int(1), args.Error(2)
}

func (m *EventRepositoryMock) ListByOwner(ctx context.Context, ownerID int) ([]*model.Event, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) ListByParticipant(ctx context.Context, userID int) ([]*model.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) ListParticipants(ctx context.Context, eventID int) ([]*model.UserSummary, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserSummary), args.Error(1)
}

func (m *EventRepositoryMock) FindByEventIDWithLock(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, tx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) Update(ctx context.Context, tx pgx.Tx, id int, params model.UpdateEventParams) error {
	args := m.Called(ctx, tx, id, params)
	return args.Error(0)
}

func (m *EventRepositoryMock) Delete(ctx context.Context, tx pgx.Tx, id int) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *EventRepositoryMock) AddParticipant(ctx context.Context, tx pgx.Tx, eventID int, userID int) error {
	args := m.Called(ctx, tx, eventID, userID)
	return args.Error(0)
}

func (m *EventRepositoryMock) RemoveParticipant(ctx context.Context, tx pgx.Tx, eventID int, userID int) error {
	args := m.Called(ctx, tx, eventID, userID)
	return args.Error(0)
}

type ActivityRepositoryMock struct {
	mock.Mock
}

func NewActivityRepositoryMock() *ActivityRepositoryMock {
	return &ActivityRepositoryMock{}
}

func (m *ActivityRepositoryMock) Create(ctx context.Context, activity *model.RegistrationActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *ActivityRepositoryMock) ListByEventID(ctx context.Context, eventID uuid.UUID) ([]*model.RegistrationActivity, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RegistrationActivity), args.Error(1)
}

var (
	_ repository.Transactor         = TransactorMock{}
	_ repository.UserRepository     = (*UserRepositoryMock)(nil)
	_ repository.EventRepository    = (*EventRepositoryMock)(nil)
	_ repository.ActivityRepository = (*ActivityRepositoryMock)(nil)
)
