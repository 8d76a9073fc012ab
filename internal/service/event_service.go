package service

import (
	"context"
	"fmt"
	"strings"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/clock"
	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"
	"eventx-ticketing/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	Create(ctx context.Context, caller model.Identity, req model.CreateEventRequest) (*model.Event, error)
	// Get, List and SeatMap accept a nil viewer for anonymous callers. Draft
	// events are only visible to their organizer and admins.
	Get(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.Event, error)
	List(ctx context.Context, viewer *model.Identity, filter model.EventFilter) ([]*model.Event, error)
	Update(ctx context.Context, caller model.Identity, eventID uuid.UUID, req model.UpdateEventRequest) (*model.Event, error)
	// UpdateStatus 活動狀態轉換 (draft -> upcoming -> active -> closed，任何狀態 -> cancelled)
	UpdateStatus(ctx context.Context, caller model.Identity, eventID uuid.UUID, status model.EventStatus) (*model.Event, error)
	// Resize 調整容量，不可低於已售出數量；0 代表暫停售票
	Resize(ctx context.Context, caller model.Identity, eventID uuid.UUID, capacity int) (*model.Event, error)
	// Delete 仍有已售出名額時拒絕刪除
	Delete(ctx context.Context, caller model.Identity, eventID uuid.UUID) error
	SeatMap(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.SeatMap, error)
}

type EventServiceImpl struct {
	events  repository.EventRepository
	tickets repository.TicketRepository
	ledger  *CapacityLedger
	clock   clock.Clock
	cfg     config.BookingConfig
	log     *zap.Logger
}

func NewEventService(
	events repository.EventRepository,
	tickets repository.TicketRepository,
	ledger *CapacityLedger,
	clk clock.Clock,
	cfg config.BookingConfig,
) EventService {
	return &EventServiceImpl{
		events:  events,
		tickets: tickets,
		ledger:  ledger,
		clock:   clk,
		cfg:     cfg,
		log:     logger.WithComponent("event"),
	}
}

func (s *EventServiceImpl) Create(ctx context.Context, caller model.Identity, req model.CreateEventRequest) (*model.Event, error) {
	if caller.Role != model.RoleOrganizer && !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrInvalidInput)
	}

	capacity := req.Capacity
	if req.SeatingPlan != nil {
		if !req.SeatingPlan.Validate() {
			return nil, fmt.Errorf("%w: seat numbers must be unique and non-empty", apperrors.ErrInvalidInput)
		}
		seats := req.SeatingPlan.SeatCount()
		if capacity == 0 {
			capacity = seats
		}
		if seats > 0 && capacity > seats {
			return nil, fmt.Errorf("%w: capacity %d exceeds %d seats in plan", apperrors.ErrInvalidInput, capacity, seats)
		}
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be positive", apperrors.ErrInvalidInput)
	}

	now := s.clock.Now()
	event := &model.Event{
		ID:          uuid.New(),
		OrganizerID: caller.UserID,
		Title:       title,
		Description: req.Description,
		Venue:       req.Venue,
		Location:    req.Location,
		StartsAt:    req.StartsAt.UTC(),
		Price:       req.Price,
		Capacity:    capacity,
		Status:      model.EventStatusDraft,
		SeatingPlan: req.SeatingPlan,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.log.Info("event created", zap.String("event_id", event.ID.String()), zap.Int("capacity", capacity))
	return event, nil
}

func (s *EventServiceImpl) Get(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.Event, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()
	return s.findVisible(ctx, viewer, eventID)
}

func (s *EventServiceImpl) List(ctx context.Context, viewer *model.Identity, filter model.EventFilter) ([]*model.Event, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, *filter.Status)
	}
	filter.HideDrafts = !canSeeDrafts(viewer, filter.OrganizerID)

	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()
	return s.events.List(ctx, filter)
}

// canSeeDrafts: admins see every draft, organizers only when listing their own events.
func canSeeDrafts(viewer *model.Identity, organizerID *uuid.UUID) bool {
	if viewer == nil {
		return false
	}
	if viewer.IsAdmin() {
		return true
	}
	return organizerID != nil && *organizerID == viewer.UserID
}

// findVisible answers ErrEventNotFound for a draft the viewer may not manage.
func (s *EventServiceImpl) findVisible(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == model.EventStatusDraft && (viewer == nil || !viewer.CanManageEvent(event)) {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

func (s *EventServiceImpl) Update(ctx context.Context, caller model.Identity, eventID uuid.UUID, req model.UpdateEventRequest) (*model.Event, error) {
	params := req.Params()
	if params.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}
	if params.Price != nil && *params.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrInvalidInput)
	}

	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	if _, err := s.authorize(ctx, caller, eventID); err != nil {
		return nil, err
	}
	return s.events.UpdateDetails(ctx, eventID, params, s.clock.Now())
}

func (s *EventServiceImpl) UpdateStatus(ctx context.Context, caller model.Identity, eventID uuid.UUID, status model.EventStatus) (*model.Event, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, status)
	}

	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	event, err := s.authorize(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, event.Status, status)
	}

	updated, err := s.events.UpdateStatus(ctx, eventID, event.Status, status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.log.Info("event status changed",
		zap.String("event_id", eventID.String()),
		zap.String("from", string(event.Status)),
		zap.String("to", string(status)),
	)
	return updated, nil
}

func (s *EventServiceImpl) Resize(ctx context.Context, caller model.Identity, eventID uuid.UUID, capacity int) (*model.Event, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	event, err := s.authorize(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}
	if seats := event.SeatingPlan.SeatCount(); seats > 0 && capacity > seats {
		return nil, fmt.Errorf("%w: capacity %d exceeds %d seats in plan", apperrors.ErrInvalidInput, capacity, seats)
	}

	if err := s.ledger.Resize(ctx, eventID, capacity); err != nil {
		return nil, err
	}
	return s.events.FindByID(ctx, eventID)
}

func (s *EventServiceImpl) Delete(ctx context.Context, caller model.Identity, eventID uuid.UUID) error {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	if _, err := s.authorize(ctx, caller, eventID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}
	s.log.Info("event deleted", zap.String("event_id", eventID.String()))
	return nil
}

func (s *EventServiceImpl) SeatMap(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.SeatMap, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	event, err := s.findVisible(ctx, viewer, eventID)
	if err != nil {
		return nil, err
	}
	booked, err := s.tickets.HeldSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &model.SeatMap{
		EventID:     event.ID,
		SeatingPlan: event.SeatingPlan,
		BookedSeats: booked,
		Capacity:    event.Capacity,
		Available:   event.AvailableSeats(),
	}, nil
}

// authorize loads the event and checks the caller may manage it.
func (s *EventServiceImpl) authorize(ctx context.Context, caller model.Identity, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManageEvent(event) {
		return nil, apperrors.ErrForbidden
	}
	return event, nil
}
