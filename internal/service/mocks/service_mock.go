package mocks

import (
	"context"

	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) Create(ctx context.Context, owner *model.User, params model.CreateEventParams) (*model.Event, error) {
	args := m.Called(ctx, owner, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Update(ctx context.Context, eventID uuid.UUID, requester *model.User, params model.UpdateEventParams) (*model.Event, error) {
	args := m.Called(ctx, eventID, requester, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Delete(ctx context.Context, eventID uuid.UUID, requester *model.User) error {
	args := m.Called(ctx, eventID, requester)
	return args.Error(0)
}

func (m *EventServiceMock) Register(ctx context.Context, eventID uuid.UUID, requester *model.User) (*model.Event, error) {
	args := m.Called(ctx, eventID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) CancelRegistration(ctx context.Context, eventID uuid.UUID, requester *model.User) (*model.Event, error) {
	args := m.Called(ctx, eventID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) List(ctx context.Context, filter model.EventFilter) (*model.EventPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventPage), args.Error(1)
}

func (m *EventServiceMock) ListMine(ctx context.Context, requester *model.User) ([]*model.Event, error) {
	args := m.Called(ctx, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) ListRegistered(ctx context.Context, requester *model.User) ([]*model.Event, error) {
	args := m.Called(ctx, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) ListActivity(ctx context.Context, eventID uuid.UUID, requester *model.User) ([]*model.RegistrationActivity, error) {
	args := m.Called(ctx, eventID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RegistrationActivity), args.Error(1)
}

type UserServiceMock struct {
	mock.Mock
}

func NewUserServiceMock() *UserServiceMock {
	return &UserServiceMock{}
}

func (m *UserServiceMock) Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserServiceMock) Login(ctx context.Context, req model.LoginRequest) (*service.LoginResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *UserServiceMock) Logout(ctx context.Context, claims *auth.Claims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

func (m *UserServiceMock) Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error) {
	args := m.Called(ctx, token)
	var user *model.User
	var claims *auth.Claims
	if args.Get(0) != nil {
		user = args.Get(0).(*model.User)
	}
	if args.Get(1) != nil {
		claims = args.Get(1).(*auth.Claims)
	}
	return user, claims, args.Error(2)
}

func (m *UserServiceMock) UpdateProfile(ctx context.Context, user *model.User, params model.UpdateProfileParams) (*model.User, error) {
	args := m.Called(ctx, user, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserServiceMock) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *UserServiceMock) Promote(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type ActivityServiceMock struct {
	mock.Mock
}

func NewActivityServiceMock() *ActivityServiceMock {
	return &ActivityServiceMock{}
}

func (m *ActivityServiceMock) Record(ctx context.Context, activity *model.RegistrationActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

var (
	_ service.EventService    = (*EventServiceMock)(nil)
	_ service.UserService     = (*UserServiceMock)(nil)
	_ service.ActivityService = (*ActivityServiceMock)(nil)
)
