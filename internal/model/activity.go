package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction 報名紀錄類型
type ActivityAction string

const (
	ActivityRegistered ActivityAction = "registered"
	ActivityCancelled  ActivityAction = "cancelled"
)

// RegistrationActivity 報名 / 取消報名的稽核紀錄，由 worker 非同步寫入
type RegistrationActivity struct {
	ActivityID uuid.UUID      `json:"activity_id" db:"activity_id"`
	EventID    uuid.UUID      `json:"event_id" db:"event_id"`
	UserID     uuid.UUID      `json:"user_id" db:"user_id"`
	Action     ActivityAction `json:"action" db:"action"`
	OccurredAt time.Time      `json:"occurred_at" db:"occurred_at"`
}

func NewRegistrationActivity(event *Event, user *User, action ActivityAction, now time.Time) *RegistrationActivity {
	return &RegistrationActivity{
		ActivityID: uuid.New(),
		EventID:    event.EventID,
		UserID:     user.UserID,
		Action:     action,
		OccurredAt: now.UTC(),
	}
}
