package repository_test

import (
	"context"
	"testing"
	"time"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/repository"
	"go-gin-event-management/internal/testutil"
	apperrors "go-gin-event-management/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestUser 輔助函數：創建測試用的 user
func createTestUser(t testing.TB, repo repository.UserRepository, email string) *model.User {
	t.Helper()
	user, err := repo.Create(context.Background(), &model.User{
		UserID:       uuid.New(),
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "hash",
		Role:         model.RoleParticipant,
	})
	require.NoError(t, err)
	return user
}

// createTestEvent 輔助函數：創建已發布的活動
func createTestEvent(t testing.TB, repo repository.EventRepository, owner *model.User, title string, capacity int) *model.Event {
	t.Helper()
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	event, err := repo.Create(context.Background(), &model.Event{
		EventID:     uuid.New(),
		Title:       title,
		Description: "description of " + title,
		Category:    model.CategoryWorkshop,
		Price:       10,
		Status:      model.EventStatusPublished,
		Capacity:    capacity,
		StartDate:   start,
		EndDate:     start.Add(2 * time.Hour),
		OwnerID:     owner.ID,
	})
	require.NoError(t, err)
	return event
}

func withTx(t *testing.T, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	t.Helper()
	return repository.NewTransactor(pool).WithinTx(context.Background(), fn)
}

func TestUserRepository_Create(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		user := createTestUser(t, repo, "alice@example.com")

		assert.NotZero(t, user.ID)
		assert.Equal(t, model.RoleParticipant, user.Role)
		assert.NotZero(t, user.CreatedAt)

		found, err := repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.UserID, found.UserID)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.User{
			UserID:       uuid.New(),
			FirstName:    "Other",
			LastName:     "User",
			Email:        "alice@example.com",
			PasswordHash: "hash",
			Role:         model.RoleParticipant,
		})
		assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.FindByUserID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

func TestUserRepository_Update(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	user := createTestUser(t, repo, "bob@example.com")

	admin := model.RoleAdmin
	first := "Robert"
	updated, err := repo.Update(ctx, user.ID, repository.UpdateUserParams{FirstName: &first, Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)
	assert.True(t, updated.IsAdmin())

	_, err = repo.Update(ctx, user.ID, repository.UpdateUserParams{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEventRepository_FindByEventID(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, users, "owner@example.com")
	event := createTestEvent(t, events, owner, "Go Workshop", 5)

	found, err := events.FindByEventID(ctx, event.EventID)
	require.NoError(t, err)
	assert.Equal(t, "Go Workshop", found.Title)
	assert.Equal(t, owner.UserID, found.Owner.UserID)
	assert.Equal(t, 0, found.ParticipantCount)
	assert.Equal(t, 5, found.AvailableSpots())

	_, err = events.FindByEventID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestEventRepository_List(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, users, "owner@example.com")
	createTestEvent(t, events, owner, "Intro to Go", 10)
	createTestEvent(t, events, owner, "100% Rust", 10)
	createTestEvent(t, events, owner, "Advanced Go", 10)

	t.Run("NewestFirst", func(t *testing.T) {
		list, total, err := events.List(ctx, model.EventFilter{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, list, 2)
		assert.Equal(t, "Advanced Go", list[0].Title)
	})

	t.Run("SearchCaseInsensitive", func(t *testing.T) {
		list, total, err := events.List(ctx, model.EventFilter{Search: "go"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, list, 2)
	})

	t.Run("SearchWildcardIsLiteral", func(t *testing.T) {
		list, total, err := events.List(ctx, model.EventFilter{Search: "%"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.Equal(t, "100% Rust", list[0].Title)
	})

	t.Run("StatusFilter", func(t *testing.T) {
		_, total, err := events.List(ctx, model.EventFilter{Status: model.EventStatusDraft})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})
}

func TestEventRepository_Participants(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, users, "owner@example.com")
	u1 := createTestUser(t, users, "u1@example.com")
	u2 := createTestUser(t, users, "u2@example.com")
	event := createTestEvent(t, events, owner, "Tiny Seminar", 1)

	err := withTx(t, pool, func(tx pgx.Tx) error {
		return events.AddParticipant(ctx, tx, event.ID, u1.ID)
	})
	require.NoError(t, err)

	t.Run("Duplicate", func(t *testing.T) {
		err := withTx(t, pool, func(tx pgx.Tx) error {
			return events.AddParticipant(ctx, tx, event.ID, u1.ID)
		})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	})

	t.Run("Full", func(t *testing.T) {
		err := withTx(t, pool, func(tx pgx.Tx) error {
			return events.AddParticipant(ctx, tx, event.ID, u2.ID)
		})
		assert.ErrorIs(t, err, apperrors.ErrEventFull)
	})

	t.Run("LockedReadLoadsRoster", func(t *testing.T) {
		err := withTx(t, pool, func(tx pgx.Tx) error {
			locked, err := events.FindByEventIDWithLock(ctx, tx, event.EventID)
			require.NoError(t, err)
			assert.Equal(t, []int{u1.ID}, locked.ParticipantIDs)
			assert.True(t, locked.IsFull())
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("ListByParticipant", func(t *testing.T) {
		list, err := events.ListByParticipant(ctx, u1.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, event.EventID, list[0].EventID)

		participants, err := events.ListParticipants(ctx, event.ID)
		require.NoError(t, err)
		require.Len(t, participants, 1)
		assert.Equal(t, u1.Email, participants[0].Email)
	})

	t.Run("Remove", func(t *testing.T) {
		err := withTx(t, pool, func(tx pgx.Tx) error {
			return events.RemoveParticipant(ctx, tx, event.ID, u1.ID)
		})
		require.NoError(t, err)

		err = withTx(t, pool, func(tx pgx.Tx) error {
			return events.RemoveParticipant(ctx, tx, event.ID, u1.ID)
		})
		assert.ErrorIs(t, err, apperrors.ErrNotRegistered)
	})
}

func TestEventRepository_UpdateAndDelete(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, users, "owner@example.com")
	event := createTestEvent(t, events, owner, "Old Title", 10)

	title := "New Title"
	capacity := 20
	err := withTx(t, pool, func(tx pgx.Tx) error {
		return events.Update(ctx, tx, event.ID, model.UpdateEventParams{Title: &title, Capacity: &capacity})
	})
	require.NoError(t, err)

	found, err := events.FindByEventID(ctx, event.EventID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", found.Title)
	assert.Equal(t, 20, found.Capacity)
	assert.Equal(t, event.Description, found.Description)

	err = withTx(t, pool, func(tx pgx.Tx) error {
		return events.Delete(ctx, tx, event.ID)
	})
	require.NoError(t, err)

	_, err = events.FindByEventID(ctx, event.EventID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestActivityRepository_CreateIsIdempotent(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	repo := repository.NewActivityRepository(pool)
	ctx := context.Background()

	activity := &model.RegistrationActivity{
		ActivityID: uuid.New(),
		EventID:    uuid.New(),
		UserID:     uuid.New(),
		Action:     model.ActivityRegistered,
		OccurredAt: time.Now().UTC(),
	}

	require.NoError(t, repo.Create(ctx, activity))
	require.NoError(t, repo.Create(ctx, activity))

	list, err := repo.ListByEventID(ctx, activity.EventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.ActivityRegistered, list[0].Action)
}
