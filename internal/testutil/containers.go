// Package testutil 啟動整合測試用的 Postgres / Redis container。
// 沒有 Docker 的環境會直接 Skip。
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-gin-event-management/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pgOnce    sync.Once
	pgInitErr error
	pgPool    *pgxpool.Pool

	redisOnce    sync.Once
	redisInitErr error
	redisAddr    string
)

// SetupPostgres 回傳已跑完 migration 的連接池，並清空所有資料表
func SetupPostgres(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	skipWithoutDocker(tb)

	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("event_management_test"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			),
		)
		if err != nil {
			pgInitErr = err
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pgInitErr = err
			return
		}

		if err := database.MigrateUp(dsn); err != nil {
			pgInitErr = err
			return
		}

		pgPool, pgInitErr = pgxpool.New(ctx, dsn)
	})
	require.NoError(tb, pgInitErr)

	TruncateAll(tb, pgPool)
	return pgPool
}

// TruncateAll 清空所有測試資料，保留 schema
func TruncateAll(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE registration_activities, event_participants, events, users RESTART IDENTITY CASCADE")
	require.NoError(tb, err, "failed to truncate tables")
}

// SetupRedis 每次回傳新的 client，並 FLUSHDB
func SetupRedis(t *testing.T) *redis.Client {
	t.Helper()
	skipWithoutDocker(t)

	redisOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForListeningPort("6379/tcp"),
			},
			Started: true,
		})
		if err != nil {
			redisInitErr = err
			return
		}
		redisAddr, redisInitErr = container.Endpoint(ctx, "")
	})
	require.NoError(t, redisInitErr)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// skipWithoutDocker benchmark 沒有 *testing.T，只能在 container 啟動失敗時才 Skip
func skipWithoutDocker(tb testing.TB) {
	if t, ok := tb.(*testing.T); ok {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}
}
