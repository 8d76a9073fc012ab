package handler

import (
	"net/http"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterPublicRoutes 不需登入即可瀏覽活動，草稿僅主辦方可見
func (h *EventHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("events", h.List)
	router.GET("events/:id", h.GetByEventID)
	router.GET("events/:id/seats", h.SeatMap)
}

func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	managers := RequireRoles(model.RoleOrganizer, model.RoleAdmin)
	router.POST("events", managers, h.Create)
	router.PUT("events/:id", managers, h.UpdateByEventID)
	router.PATCH("events/:id/status", managers, h.UpdateStatus)
	router.PUT("events/:id/capacity", managers, h.Resize)
	router.DELETE("events/:id", managers, h.Delete)
}

// ListEventsQuery 活動列表查詢參數
type ListEventsQuery struct {
	Status      string `form:"status"`
	OrganizerID string `form:"organizer_id"`
	Page        int    `form:"page"`
	Limit       int    `form:"limit"`
}

func (h *EventHandler) List(c *gin.Context) {
	var query ListEventsQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	filter := model.EventFilter{Page: query.Page, Limit: query.Limit}
	if query.Status != "" {
		status := model.EventStatus(query.Status)
		filter.Status = &status
	}
	if query.OrganizerID != "" {
		organizerID, err := uuid.Parse(query.OrganizerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organizer id"})
			return
		}
		filter.OrganizerID = &organizerID
	}
	filter = filter.Normalize()

	events, err := h.service.List(c, viewer(c), filter)
	if err != nil {
		handleError(c, err, "ListEvents")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

func (h *EventHandler) GetByEventID(c *gin.Context) {
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	event, err := h.service.Get(c, viewer(c), eventID)
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) SeatMap(c *gin.Context) {
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	seatMap, err := h.service.SeatMap(c, viewer(c), eventID)
	if err != nil {
		handleError(c, err, "SeatMap")
		return
	}
	c.JSON(http.StatusOK, seatMap)
}

func (h *EventHandler) Create(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c, identity, req)
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *EventHandler) UpdateByEventID(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	var req model.UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.Update(c, identity, eventID, req)
	if err != nil {
		handleError(c, err, "UpdateEvent")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) UpdateStatus(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	var req model.UpdateEventStatusRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.UpdateStatus(c, identity, eventID, req.Status)
	if err != nil {
		handleError(c, err, "UpdateEventStatus")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) Resize(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	var req model.ResizeEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.Resize(c, identity, eventID, *req.Capacity)
	if err != nil {
		handleError(c, err, "ResizeEvent")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) Delete(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	if err := h.service.Delete(c, identity, eventID); err != nil {
		handleError(c, err, "DeleteEvent")
		return
	}
	c.Status(http.StatusNoContent)
}
