package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/cache"
	"go-gin-event-management/internal/handler"
	"go-gin-event-management/internal/middleware"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/queue"
	"go-gin-event-management/internal/repository"
	"go-gin-event-management/internal/service"
	"go-gin-event-management/internal/testutil"
	"go-gin-event-management/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type failingQueue struct{}

func (f *failingQueue) Publish(ctx context.Context, activity *model.RegistrationActivity) error {
	return errors.New("queue publish failed")
}

func (f *failingQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	close(out)
	return out, nil
}

// setupIntegrationTest 以真實的 Postgres / Redis 組出完整的 router 與 worker
func setupIntegrationTest(t *testing.T, useFailingQueue bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := testutil.SetupPostgres(t)
	rdb := testutil.SetupRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var activityQueue queue.ActivityQueue = &failingQueue{}
	if !useFailingQueue {
		q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "integration", &queue.RedisStreamActivityQueueConfig{
			ReadGroupBlockTime: 100 * time.Millisecond,
		})
		require.NoError(t, err)
		activityQueue = q
	}

	activityRepo := repository.NewActivityRepository(pool)
	eventService := service.NewEventService(
		repository.NewTransactor(pool),
		repository.NewEventRepository(pool),
		activityRepo,
		activityQueue,
	)
	userService := service.NewUserService(
		repository.NewUserRepository(pool),
		auth.NewTokenManager("integration-secret", time.Hour, "integration"),
		auth.NewPasswordHasher(bcrypt.MinCost),
		cache.NewRedisTokenDenylist(rdb),
	)

	w := worker.NewActivityWorker(service.NewActivityService(activityRepo), activityQueue, 3)
	go func() { _ = w.Run(ctx) }()

	return handler.NewRouter(
		handler.RouterConfig{MaxBodyBytes: 16 * 1024, CookieName: "accessToken"},
		handler.NewEventHandler(eventService),
		handler.NewUserHandler(userService, handler.CookieOptions{Name: "accessToken"}),
		userService,
		middleware.NewRateLimiter(0),
	)
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) call(method, path string, payload interface{}) (int, envelope) {
	c.t.Helper()
	var req *http.Request
	if payload == nil {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req = createJSONHTTPRequest(method, path, payload)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w.Code, decodeEnvelope(c.t, w)
}

// signUp 註冊並登入，回傳帶 token 的 client
func signUp(t *testing.T, router *gin.Engine, email string) *client {
	t.Helper()
	c := &client{t: t, router: router}

	status, _ := c.call(http.MethodPost, "/api/v1/users/register", map[string]string{
		"first_name": "Test", "last_name": "User", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := c.call(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &login))
	c.token = login.AccessToken
	return c
}

func createPublishedEvent(t *testing.T, owner *client, capacity int) string {
	t.Helper()
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)

	status, body := owner.call(http.MethodPost, "/api/v1/events", map[string]interface{}{
		"title":       "Integration Meetup",
		"description": "end to end",
		"category":    "seminar",
		"price":       0,
		"capacity":    capacity,
		"start_date":  start.Format(time.RFC3339),
		"end_date":    start.Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status, body.Message)

	var event struct {
		EventID string `json:"event_id"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &event))
	assert.Equal(t, "draft", event.Status)

	status, _ = owner.call(http.MethodPatch, "/api/v1/events/"+event.EventID, map[string]string{"status": "published"})
	require.Equal(t, http.StatusOK, status)
	return event.EventID
}

func TestIntegration_RegistrationFlow(t *testing.T) {
	router := setupIntegrationTest(t, false)

	owner := signUp(t, router, "owner@example.com")
	alice := signUp(t, router, "alice@example.com")
	bob := signUp(t, router, "bob@example.com")

	eventID := createPublishedEvent(t, owner, 1)

	status, body := alice.call(http.MethodPost, "/api/v1/events/"+eventID+"/register", nil)
	require.Equal(t, http.StatusOK, status, body.Message)

	status, body = alice.call(http.MethodPost, "/api/v1/events/"+eventID+"/register", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = bob.call(http.MethodPost, "/api/v1/events/"+eventID+"/register", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Event is at full capacity", body.Message)

	status, body = alice.call(http.MethodGet, "/api/v1/events/user/registered", nil)
	require.Equal(t, http.StatusOK, status)
	var registered []map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &registered))
	require.Len(t, registered, 1)
	assert.Equal(t, eventID, registered[0]["event_id"])

	// 只有建立者可以看報名紀錄；紀錄由 worker 非同步寫入
	status, _ = alice.call(http.MethodGet, "/api/v1/events/"+eventID+"/activity", nil)
	assert.Equal(t, http.StatusForbidden, status)

	assert.Eventually(t, func() bool {
		status, body := owner.call(http.MethodGet, "/api/v1/events/"+eventID+"/activity", nil)
		if status != http.StatusOK {
			return false
		}
		var activities []model.RegistrationActivity
		return json.Unmarshal(body.Data, &activities) == nil && len(activities) == 1
	}, 5*time.Second, 100*time.Millisecond)

	status, _ = alice.call(http.MethodDelete, "/api/v1/events/"+eventID+"/register", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = bob.call(http.MethodPost, "/api/v1/events/"+eventID+"/register", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = bob.call(http.MethodGet, "/api/v1/events/"+eventID, nil)
	require.Equal(t, http.StatusOK, status)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &event))
	assert.Equal(t, float64(0), event["available_spots"])
	assert.Equal(t, float64(1), event["participant_count"])
}

func TestIntegration_LogoutRevokesToken(t *testing.T) {
	router := setupIntegrationTest(t, false)
	alice := signUp(t, router, "alice@example.com")

	status, _ := alice.call(http.MethodGet, "/api/v1/users/profile", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = alice.call(http.MethodPost, "/api/v1/users/logout", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := alice.call(http.MethodGet, "/api/v1/users/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid access token", body.Message)
}

func TestIntegration_RegistrationSurvivesQueueFailure(t *testing.T) {
	router := setupIntegrationTest(t, true)

	owner := signUp(t, router, "owner@example.com")
	alice := signUp(t, router, "alice@example.com")
	eventID := createPublishedEvent(t, owner, 10)

	status, _ := alice.call(http.MethodPost, "/api/v1/events/"+eventID+"/register", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := owner.call(http.MethodGet, "/api/v1/events/"+eventID+"/activity", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", string(body.Data))
}
