package apperrors

import (
	"errors"
	"net/http"
)

// Kind 錯誤分類，決定回傳給呼叫端的 HTTP 狀態碼
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindCapacity     Kind = "capacity"
	KindInternal     Kind = "internal"
)

// HTTPStatus 回傳對應的 HTTP 狀態碼
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidState, KindCapacity:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error 領域錯誤：帶有分類與可直接顯示給使用者的訊息
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, message)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, message)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, message)
}

func Conflict(message string) *Error {
	return newError(KindConflict, message)
}

func InvalidState(message string) *Error {
	return newError(KindInvalidState, message)
}

// KindOf 取出錯誤分類；非領域錯誤一律視為 internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As 取出 *Error，找不到時回傳 nil
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

var (
	ErrInvalidInput        = newError(KindValidation, "Invalid input")
	ErrMissingFields       = newError(KindValidation, "All required fields must be provided")
	ErrInvalidDateRange    = newError(KindValidation, "End date must be after start date")
	ErrInvalidEventID      = newError(KindValidation, "Invalid event ID")
	ErrCapacityBelowRoster = newError(KindValidation, "Capacity cannot be lower than the number of registered participants")

	ErrUnauthorized       = newError(KindUnauthorized, "Unauthorized request")
	ErrInvalidToken       = newError(KindUnauthorized, "Invalid access token")
	ErrInvalidCredentials = newError(KindUnauthorized, "Invalid credentials")

	ErrAdminRequired = newError(KindForbidden, "Access denied. Admin permission required.")

	ErrEventNotFound = newError(KindNotFound, "Event not found")
	ErrUserNotFound  = newError(KindNotFound, "User not found")

	ErrEmailTaken        = newError(KindConflict, "User with this email already exists")
	ErrAlreadyRegistered = newError(KindConflict, "You are already registered for this event")

	ErrEventNotPublished   = newError(KindInvalidState, "Cannot register for an event that is not published")
	ErrNotRegistered       = newError(KindInvalidState, "You are not registered for this event")
	ErrInvalidStatusChange = newError(KindInvalidState, "Invalid event status transition")
	ErrCancellationClosed  = newError(KindInvalidState, "Registration can no longer be cancelled for this event")

	ErrEventFull = newError(KindCapacity, "Event is at full capacity")

	ErrInternalServerError = newError(KindInternal, "Internal server error")
)
