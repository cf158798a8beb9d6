package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/handler"
	"go-gin-event-management/internal/middleware"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	InvalidJSON = `{"invalid": json}`
)

const testToken = "test-token"

// envelope 回應格式
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

type testServer struct {
	router *gin.Engine
	events *mocks.EventServiceMock
	users  *mocks.UserServiceMock
}

func setupTestRouter(authLimit int) *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		events: mocks.NewEventServiceMock(),
		users:  mocks.NewUserServiceMock(),
	}
	s.router = handler.NewRouter(
		handler.RouterConfig{CORSOrigins: []string{"*"}, MaxBodyBytes: 16 * 1024, CookieName: "accessToken"},
		handler.NewEventHandler(s.events),
		handler.NewUserHandler(s.users, handler.CookieOptions{Name: "accessToken"}),
		s.users,
		middleware.NewRateLimiter(authLimit),
	)
	return s
}

// loginAs 讓帶 testToken 的請求以 user 身分通過驗證
func (s *testServer) loginAs(user *model.User) *auth.Claims {
	claims := &auth.Claims{}
	claims.ID = "jti-" + user.UserID.String()
	s.users.On("Authenticate", mock.Anything, testToken).Return(user, claims, nil)
	return claims
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func newUser(id int, role model.Role) *model.User {
	return &model.User{
		ID:        id,
		UserID:    uuid.New(),
		FirstName: "User",
		LastName:  "Test",
		Email:     "user@example.com",
		Role:      role,
	}
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if raw, ok := data.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
