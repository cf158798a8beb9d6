package handler

import (
	"net/http"
	"strconv"
	"time"

	"go-gin-event-management/internal/middleware"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/response"
	"go-gin-event-management/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	events := api.Group("/events")
	{
		events.GET("", h.List)
		events.GET("/:id", h.GetByEventID)

		authed := events.Group("", requireAuth)
		authed.POST("", h.Create)
		authed.PATCH("/:id", h.Update)
		authed.DELETE("/:id", h.Delete)
		authed.POST("/:id/register", h.Register)
		authed.DELETE("/:id/register", h.CancelRegistration)
		authed.GET("/:id/activity", h.ListActivity)
		authed.GET("/user/my-events", h.ListMine)
		authed.GET("/user/registered", h.ListRegistered)
	}
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Category    model.EventCategory `json:"category" binding:"required,event_category"`
	Price       *float64            `json:"price" binding:"required,gte=0"`
	Location    *string             `json:"location"`
	Capacity    *int                `json:"capacity" binding:"omitempty,gt=0"`
	StartDate   time.Time           `json:"start_date" binding:"required"`
	EndDate     time.Time           `json:"end_date" binding:"required"`
}

// UpdateEventRequest 部分更新，未帶的欄位維持原值
type UpdateEventRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Category    *model.EventCategory `json:"category" binding:"omitempty,event_category"`
	Price       *float64             `json:"price" binding:"omitempty,gte=0"`
	Location    *string              `json:"location"`
	Capacity    *int                 `json:"capacity" binding:"omitempty,gt=0"`
	Status      *model.EventStatus   `json:"status" binding:"omitempty,event_status"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
}

func (h *EventHandler) List(c *gin.Context) {
	// 分頁參數解析失敗時交給 Normalize 修正為預設值
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(firstQuery(c, "page_size", "limit"))

	result, err := h.service.List(c.Request.Context(), model.EventFilter{
		Category: model.EventCategory(firstQuery(c, "category", "eventType")),
		Status:   model.EventStatus(c.Query("status")),
		Search:   firstQuery(c, "search", "searchTerm"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	response.OK(c, http.StatusOK, result, "Events fetched successfully")
}

func (h *EventHandler) GetByEventID(c *gin.Context) {
	eventID, err := parseEventID(c)
	if err != nil {
		h.handleError(c, err, "GetByEventID")
		return
	}
	event, err := h.service.GetByEventID(c.Request.Context(), eventID)
	if err != nil {
		h.handleError(c, err, "GetByEventID")
		return
	}
	response.OK(c, http.StatusOK, event, "Event fetched successfully")
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		h.handleError(c, err, "Create")
		return
	}

	created, err := h.service.Create(c.Request.Context(), middleware.CurrentUser(c), model.CreateEventParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Location:    req.Location,
		Capacity:    req.Capacity,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	response.OK(c, http.StatusCreated, created, "Event created successfully")
}

func (h *EventHandler) Update(c *gin.Context) {
	eventID, err := parseEventID(c)
	if err != nil {
		h.handleError(c, err, "Update")
		return
	}
	var req UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		h.handleError(c, err, "Update")
		return
	}

	updated, err := h.service.Update(c.Request.Context(), eventID, middleware.CurrentUser(c), model.UpdateEventParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.handleError(c, err, "Update")
		return
	}
	response.OK(c, http.StatusOK, updated, "Event updated successfully")
}

func (h *EventHandler) Delete(c *gin.Context) {
	eventID, err := parseEventID(c)
	if err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	if err := h.service.Delete(c.Request.Context(), eventID, middleware.CurrentUser(c)); err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	response.OK(c, http.StatusOK, gin.H{}, "Event deleted successfully")
}

func (h *EventHandler) Register(c *gin.Context) {
	eventID, err := parseEventID(c)
	if err != nil {
		h.handleError(c, err, "Register")
		return
	}
	event, err := h.service.Register(c.Request.Context(), eventID, middleware.CurrentUser(c))
	if err != nil {
		h.handleError(c, err, "Register")
		return
	}
	response.OK(c, http.StatusOK, event, "Successfully registered for the event")
}

func (h *EventHandler) CancelRegistration(c *gin.Context) {
	eventID, err := parseEventID(c)
	if err != nil {
		h.handleError(c, err, "CancelRegistration")
		return
	}
	event, err := h.service.CancelRegistration(c.Request.Context(), eventID, middleware.CurrentUser(c))
	if err != nil {
		h.handleError(c, err, "CancelRegistration")
		return
	}
	response.OK(c, http.StatusOK, event, "Successfully cancelled registration")
}

func (h *EventHandler) ListActivity(c *gin.Context) {
	eventID, err := parseEventID(c)
	if err != nil {
		h.handleError(c, err, "ListActivity")
		return
	}
	activities, err := h.service.ListActivity(c.Request.Context(), eventID, middleware.CurrentUser(c))
	if err != nil {
		h.handleError(c, err, "ListActivity")
		return
	}
	response.OK(c, http.StatusOK, activities, "Registration activity fetched successfully")
}

func (h *EventHandler) ListMine(c *gin.Context) {
	events, err := h.service.ListMine(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.handleError(c, err, "ListMine")
		return
	}
	response.OK(c, http.StatusOK, events, "Events fetched successfully")
}

func (h *EventHandler) ListRegistered(c *gin.Context) {
	events, err := h.service.ListRegistered(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.handleError(c, err, "ListRegistered")
		return
	}
	response.OK(c, http.StatusOK, events, "Registered events fetched successfully")
}

// firstQuery 依序取第一個有值的 query 參數
func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return v
		}
	}
	return ""
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	handleError(c, err, "event_handler", operation)
}
