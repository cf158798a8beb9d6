// Package response 統一的 JSON 回應格式
//
//	成功: {statusCode, data, message, success: true}
//	失敗: {statusCode, message, data: null, success: false, errors: []}
package response

import (
	"net/http"

	apperrors "go-gin-event-management/pkg/app_errors"

	"github.com/gin-gonic/gin"
)

type Success struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

type Failure struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Success    bool        `json:"success"`
	Errors     []string    `json:"errors"`
}

func OK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Success{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// Fail 依錯誤分類決定狀態碼；非領域錯誤一律回 500，不外洩原始訊息
func Fail(c *gin.Context, err error) int {
	status := http.StatusInternalServerError
	message := apperrors.ErrInternalServerError.Message
	details := []string{}

	if appErr := apperrors.As(err); appErr != nil && appErr.Kind != apperrors.KindInternal {
		status = appErr.Kind.HTTPStatus()
		message = appErr.Message
		if len(appErr.Details) > 0 {
			details = appErr.Details
		}
	}

	c.AbortWithStatusJSON(status, Failure{
		StatusCode: status,
		Message:    message,
		Data:       nil,
		Success:    false,
		Errors:     details,
	})
	return status
}

// Abort 直接以指定狀態碼與訊息回應（例如 413、429）
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Failure{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     []string{},
	})
}
