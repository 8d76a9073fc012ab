package handler

import (
	"net/http"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	booking service.BookingService
	gate    service.ValidationGate
}

func NewTicketHandler(booking service.BookingService, gate service.ValidationGate) *TicketHandler {
	return &TicketHandler{booking: booking, gate: gate}
}

// RegisterRoutes 訂票與驗票路由，bookingLimit / scanLimit 可為 nil
func (h *TicketHandler) RegisterRoutes(router gin.IRouter, bookingLimit, scanLimit gin.HandlerFunc) {
	router.POST("tickets", chain(bookingLimit, h.Book)...)
	router.GET("tickets/mine", h.ListMine)
	router.GET("tickets/:id", h.GetByTicketID)
	router.DELETE("tickets/:id", chain(bookingLimit, h.Cancel)...)
	router.PUT("tickets/:id/validate",
		chain(scanLimit, RequireRoles(model.RoleStaff, model.RoleOrganizer, model.RoleAdmin), h.Validate)...)
	router.PUT("tickets/:id/refund", RequireRoles(model.RoleAdmin), h.Refund)
	router.GET("events/:id/tickets", RequireRoles(model.RoleOrganizer, model.RoleAdmin), h.ListForEvent)
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (h *TicketHandler) Book(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req model.BookRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	ticket, err := h.booking.Book(c, identity, req)
	if err != nil {
		handleError(c, err, "Book")
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) ListMine(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	tickets, err := h.booking.ListMine(c, identity)
	if err != nil {
		handleError(c, err, "ListMine")
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) GetByTicketID(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	ticketID, ok := parseID(c, "id", "ticket")
	if !ok {
		return
	}
	ticket, err := h.booking.Get(c, identity, ticketID)
	if err != nil {
		handleError(c, err, "GetTicket")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Cancel(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	ticketID, ok := parseID(c, "id", "ticket")
	if !ok {
		return
	}
	ticket, err := h.booking.Cancel(c, identity, ticketID)
	if err != nil {
		handleError(c, err, "Cancel")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Validate(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	ticketID, ok := parseID(c, "id", "ticket")
	if !ok {
		return
	}
	receipt, err := h.gate.Validate(c, identity, ticketID)
	if err != nil {
		handleError(c, err, "Validate")
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *TicketHandler) Refund(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	ticketID, ok := parseID(c, "id", "ticket")
	if !ok {
		return
	}
	ticket, err := h.booking.Refund(c, identity, ticketID)
	if err != nil {
		handleError(c, err, "Refund")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) ListForEvent(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	tickets, err := h.booking.ListForEvent(c, identity, eventID)
	if err != nil {
		handleError(c, err, "ListForEvent")
		return
	}
	c.JSON(http.StatusOK, tickets)
}
