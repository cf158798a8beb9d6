package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "go-gin-event-management/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, http.StatusCreated, gin.H{"id": 1}, "Created")

	body := decode(t, w)
	assert.Equal(t, float64(201), body["statusCode"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Created", body["message"])
	assert.NotNil(t, body["data"])
	assert.NotContains(t, body, "errors")
}

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"NotFound", apperrors.ErrEventNotFound, 404, "Event not found"},
		{"Conflict", apperrors.ErrAlreadyRegistered, 409, "You are already registered for this event"},
		{"Capacity", apperrors.ErrEventFull, 400, "Event is at full capacity"},
		{"Forbidden", apperrors.Forbidden("nope"), 403, "nope"},
		{"Unknown", errors.New("pq: connection refused"), 500, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			status := Fail(c, tt.err)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, float64(tt.status), body["statusCode"])
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, false, body["success"])
			assert.Nil(t, body["data"])
			assert.Equal(t, []interface{}{}, body["errors"])
		})
	}
}

func TestFail_ValidationDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, apperrors.Validation("Validation failed", "email is required"))

	body := decode(t, w)
	assert.Equal(t, []interface{}{"email is required"}, body["errors"])
}
