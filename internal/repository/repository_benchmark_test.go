package repository_test

import (
	"context"
	"testing"
	"time"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/repository"
	"go-gin-event-management/internal/testutil"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func fakeEvent(owner *model.User) *model.Event {
	start := gofakeit.FutureDate().UTC().Truncate(time.Second)
	return &model.Event{
		EventID:     uuid.New(),
		Title:       gofakeit.LoremIpsumSentence(4),
		Description: gofakeit.LoremIpsumSentence(15),
		Category:    model.CategoryConference,
		Price:       gofakeit.Price(0, 200),
		Status:      model.EventStatusPublished,
		Capacity:    75,
		StartDate:   start,
		EndDate:     start.Add(3 * time.Hour),
		OwnerID:     owner.ID,
	}
}

// seedEvents 建立 n 筆假資料供查詢 benchmark 使用
func seedEvents(b *testing.B, repo repository.EventRepository, owner *model.User, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if _, err := repo.Create(context.Background(), fakeEvent(owner)); err != nil {
			b.Fatalf("could not seed events: %v", err)
		}
	}
}

func BenchmarkEventRepository_Create(b *testing.B) {
	pool := testutil.SetupPostgres(b)
	repo := repository.NewEventRepository(pool)
	owner := createTestUser(b, repository.NewUserRepository(pool), gofakeit.Email())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.Create(context.Background(), fakeEvent(owner)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEventRepository_List(b *testing.B) {
	pool := testutil.SetupPostgres(b)
	repo := repository.NewEventRepository(pool)
	owner := createTestUser(b, repository.NewUserRepository(pool), gofakeit.Email())
	seedEvents(b, repo, owner, 1000)

	filter := model.EventFilter{Search: "lorem", PageSize: 50}.Normalize()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := repo.List(context.Background(), filter); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEventRepository_AddParticipant(b *testing.B) {
	pool := testutil.SetupPostgres(b)
	users := repository.NewUserRepository(pool)
	repo := repository.NewEventRepository(pool)
	owner := createTestUser(b, users, gofakeit.Email())

	participants := make([]*model.User, b.N)
	for i := range participants {
		participants[i] = createTestUser(b, users, uuid.NewString()+"@example.com")
	}
	event := fakeEvent(owner)
	event.Capacity = b.N + 1
	created, err := repo.Create(context.Background(), event)
	if err != nil {
		b.Fatal(err)
	}

	transactor := repository.NewTransactor(pool)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := transactor.WithinTx(context.Background(), func(tx pgx.Tx) error {
			return repo.AddParticipant(context.Background(), tx, created.ID, participants[i].ID)
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
