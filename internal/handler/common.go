package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/response"
	apperrors "go-gin-event-management/pkg/app_errors"
	"go-gin-event-management/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var registerValidatorsOnce sync.Once

// RegisterValidators 在 gin 的 validator 上註冊自訂 tag，並讓錯誤訊息使用 json 欄位名稱
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("event_category", func(fl validator.FieldLevel) bool {
			return model.EventCategory(fl.Field().String()).IsValid()
		})
		_ = v.RegisterValidation("event_status", func(fl validator.FieldLevel) bool {
			return model.EventStatus(fl.Field().String()).IsValid()
		})
	})
}

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bindingError(err)
	}
	return nil
}

// bindingError 將 validator 錯誤轉為逐欄位的 ValidationError
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldMessage(fe))
		}
		return apperrors.Validation("Validation failed", details...)
	}
	return apperrors.Validation("Invalid request format")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "event_category":
		return fmt.Sprintf("%s must be one of: conference, workshop, seminar, other", field)
	case "event_status":
		return fmt.Sprintf("%s must be one of: draft, published, completed, cancelled", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func parseEventID(c *gin.Context) (uuid.UUID, error) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidEventID
	}
	return eventID, nil
}

// handleError 統一錯誤回應；4xx 記 Warn、5xx 記 Error
func handleError(c *gin.Context, err error, component, operation string) {
	status := response.Fail(c, err)
	_ = c.Error(err)

	log := logger.WithComponent(component).With(
		zap.String("operation", operation),
		zap.Error(err),
	)
	if status >= 500 {
		log.Error("request failed")
	} else {
		log.Warn("request rejected", zap.Int("status", status))
	}
}
