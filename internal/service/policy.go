package service

import (
	"time"

	"go-gin-event-management/internal/model"
	apperrors "go-gin-event-management/pkg/app_errors"
)

// Action 需要授權的活動操作
type Action string

const (
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionViewActivity Action = "view_activity"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err 拒絕時轉成 ForbiddenError
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.Forbidden(d.Reason)
}

// Authorize 判斷 requester 是否可以對 event 執行 action
//
//	update:        owner
//	delete:        owner 或 admin
//	view_activity: owner 或 admin
func Authorize(requester *model.User, event *model.Event, action Action) Decision {
	if requester == nil || event == nil {
		return deny("Unauthorized request")
	}

	owner := event.IsOwnedBy(requester)

	switch action {
	case ActionUpdate:
		if owner {
			return allow()
		}
		return deny("You are not authorized to update this event")
	case ActionDelete:
		if owner || requester.IsAdmin() {
			return allow()
		}
		return deny("You are not authorized to delete this event")
	case ActionViewActivity:
		if owner || requester.IsAdmin() {
			return allow()
		}
		return deny("You are not authorized to view this event's activity")
	}
	return deny("Unknown action")
}

// CancellationPolicy 取消報名前的額外檢查
type CancellationPolicy interface {
	Check(event *model.Event, now time.Time) error
}

// CutoffPolicy 活動開始前 Window 內不允許取消
type CutoffPolicy struct {
	Window time.Duration
}

func (p CutoffPolicy) Check(event *model.Event, now time.Time) error {
	if !event.CanCancel(now, p.Window) {
		return apperrors.ErrCancellationClosed
	}
	return nil
}
