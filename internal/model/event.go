package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCapacity     = 100
	DefaultCancelCutoff = 24 * time.Hour
	DefaultPageSize     = 10
	MaxPageSize         = 100
)

// EventCategory 活動類型
type EventCategory string

const (
	CategoryConference EventCategory = "conference"
	CategoryWorkshop   EventCategory = "workshop"
	CategorySeminar    EventCategory = "seminar"
	CategoryOther      EventCategory = "other"
)

func (c EventCategory) IsValid() bool {
	switch c {
	case CategoryConference, CategoryWorkshop, CategorySeminar, CategoryOther:
		return true
	}
	return false
}

// EventStatus 活動狀態
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態，相同狀態視為允許
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	if s == target {
		return true
	}

	transitions := map[EventStatus][]EventStatus{
		EventStatusDraft:     {EventStatusPublished, EventStatusCancelled},
		EventStatusPublished: {EventStatusCompleted, EventStatusCancelled},
		EventStatusCompleted: {}, // terminal
		EventStatusCancelled: {}, // terminal
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Event 活動模型
type Event struct {
	ID          int           `json:"-" db:"id"`
	EventID     uuid.UUID     `json:"event_id" db:"event_id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Category    EventCategory `json:"category" db:"category"`
	Price       float64       `json:"price" db:"price"`
	Location    *string       `json:"location,omitempty" db:"location"`
	Status      EventStatus   `json:"status" db:"status"`
	Capacity    int           `json:"capacity" db:"capacity"`
	StartDate   time.Time     `json:"start_date" db:"start_date"`
	EndDate     time.Time     `json:"end_date" db:"end_date"`
	OwnerID     int           `json:"-" db:"owner_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`

	Owner            *UserSummary   `json:"owner,omitempty" db:"-"`
	ParticipantCount int            `json:"participant_count" db:"-"`
	ParticipantIDs   []int          `json:"-" db:"-"`
	Participants     []*UserSummary `json:"participants,omitempty" db:"-"`
}

// AvailableSpots 剩餘名額，永不為負
func (e *Event) AvailableSpots() int {
	spots := e.Capacity - e.ParticipantCount
	if spots < 0 {
		return 0
	}
	return spots
}

func (e *Event) IsFull() bool {
	return e.ParticipantCount >= e.Capacity
}

func (e *Event) IsOwnedBy(user *User) bool {
	return user != nil && e.OwnerID == user.ID
}

// HasParticipant 需先載入 ParticipantIDs（FindByEventIDWithLock）
func (e *Event) HasParticipant(userID int) bool {
	for _, id := range e.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanCancel 距離開始時間超過 window 才允許取消
func (e *Event) CanCancel(now time.Time, window time.Duration) bool {
	return e.StartDate.Sub(now) > window
}

func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		AvailableSpots int `json:"available_spots"`
	}{
		alias:          alias(e),
		AvailableSpots: e.AvailableSpots(),
	})
}

// CreateEventParams 建立活動參數
type CreateEventParams struct {
	Title       string
	Description string
	Category    EventCategory
	Price       *float64
	Location    *string
	Capacity    *int
	StartDate   time.Time
	EndDate     time.Time
}

// UpdateEventParams 部分更新參數，nil 代表沿用原值
type UpdateEventParams struct {
	Title       *string
	Description *string
	Category    *EventCategory
	Price       *float64
	Location    *string
	Capacity    *int
	Status      *EventStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

func (p UpdateEventParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Price == nil &&
		p.Location == nil && p.Capacity == nil && p.Status == nil && p.StartDate == nil && p.EndDate == nil
}

// EventFilter 活動列表查詢條件
type EventFilter struct {
	Category EventCategory
	Status   EventStatus
	Search   string
	Page     int
	PageSize int
}

// Normalize 不合理的分頁參數修正為預設值；搜尋字串去掉非法 UTF-8 與 NUL，資料庫不接受這兩種輸入
func (f EventFilter) Normalize() EventFilter {
	f.Search = strings.ReplaceAll(strings.ToValidUTF8(f.Search, ""), "\x00", "")
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// MatchesNothing 分類或狀態不是已知值時，任何活動都不會符合
func (f EventFilter) MatchesNothing() bool {
	return (f.Category != "" && !f.Category.IsValid()) || (f.Status != "" && !f.Status.IsValid())
}

func (f EventFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// EventPage 分頁結果
type EventPage struct {
	Events      []*Event `json:"events"`
	TotalEvents int      `json:"total_events"`
	CurrentPage int      `json:"current_page"`
	PageSize    int      `json:"page_size"`
	TotalPages  int      `json:"total_pages"`
}

func NewEventPage(events []*Event, total int, filter EventFilter) *EventPage {
	if events == nil {
		events = make([]*Event, 0)
	}
	return &EventPage{
		Events:      events,
		TotalEvents: total,
		CurrentPage: filter.Page,
		PageSize:    filter.PageSize,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}
}
