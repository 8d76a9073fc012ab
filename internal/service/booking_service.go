package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/cache"
	"eventx-ticketing/internal/clock"
	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"
	"eventx-ticketing/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ticketNumberAttempts = 5

type BookingService interface {
	// 訂票：預留名額 + 建立票券，任一步失敗都會回補名額
	Book(ctx context.Context, caller model.Identity, req model.BookRequest) (*model.Ticket, error)
	// 取消：僅票券持有人或管理員，成功後釋放名額
	Cancel(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error)
	// 退款：僅管理員，且只能從 cancelled 轉換
	Refund(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error)
	Get(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error)
	ListMine(ctx context.Context, caller model.Identity) ([]*model.Ticket, error)
	ListForEvent(ctx context.Context, caller model.Identity, eventID uuid.UUID) ([]*model.Ticket, error)
}

type BookingServiceImpl struct {
	events  repository.EventRepository
	tickets repository.TicketRepository
	ledger  *CapacityLedger
	locker  cache.SeatLocker
	queue   queue.TicketEventQueue
	clock   clock.Clock
	cfg     config.BookingConfig
	log     *zap.Logger
}

func NewBookingService(
	events repository.EventRepository,
	tickets repository.TicketRepository,
	ledger *CapacityLedger,
	locker cache.SeatLocker,
	q queue.TicketEventQueue,
	clk clock.Clock,
	cfg config.BookingConfig,
) BookingService {
	if locker == nil {
		locker = cache.NoopSeatLocker{}
	}
	return &BookingServiceImpl{
		events:  events,
		tickets: tickets,
		ledger:  ledger,
		locker:  locker,
		queue:   q,
		clock:   clk,
		cfg:     cfg,
		log:     logger.WithComponent("booking"),
	}
}

func (s *BookingServiceImpl) Book(ctx context.Context, caller model.Identity, req model.BookRequest) (*model.Ticket, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.IsBookable() {
		return nil, fmt.Errorf("%w: event is %s", apperrors.ErrEventNotBookable, event.Status)
	}

	seat, err := resolveSeat(event, req.SeatNumber)
	if err != nil {
		return nil, err
	}

	if seat != nil {
		token, err := s.locker.Acquire(ctx, event.ID, *seat)
		if err != nil {
			return nil, err
		}
		defer func() {
			lctx, lcancel := detached(ctx, s.cfg)
			defer lcancel()
			if err := s.locker.Release(lctx, event.ID, *seat, token); err != nil {
				s.log.Warn("release seat lock failed", zap.String("event_id", event.ID.String()), zap.String("seat", *seat), zap.Error(err))
			}
		}()

		held, err := s.tickets.SeatHeld(ctx, event.ID, *seat)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, apperrors.ErrSeatTaken
		}
	}

	if err := s.ledger.Reserve(ctx, event.ID); err != nil {
		return nil, err
	}

	ticket, err := s.createTicket(ctx, event, caller.UserID, seat)
	if err != nil {
		s.compensate(ctx, event.ID, err)
		return nil, err
	}

	s.log.Info("ticket booked",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("event_id", event.ID.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	s.publish(ctx, model.TicketEventBooked, ticket)
	return ticket, nil
}

// createTicket issues a fresh ticket number whenever the store reports a collision.
func (s *BookingServiceImpl) createTicket(ctx context.Context, event *model.Event, userID uuid.UUID, seat *string) (*model.Ticket, error) {
	var err error
	for attempt := 1; attempt <= ticketNumberAttempts; attempt++ {
		ticket := model.NewTicket(event, userID, seat, s.clock.Now())
		err = s.tickets.Create(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, apperrors.ErrTicketNumberTaken) {
			return nil, err
		}
		s.log.Debug("ticket number collision", zap.String("ticket_number", ticket.TicketNumber), zap.Int("attempt", attempt))
	}
	return nil, err
}

// compensate hands the reserved seat back after ticket creation failed. It
// runs even when the request context is already cancelled.
func (s *BookingServiceImpl) compensate(ctx context.Context, eventID uuid.UUID, cause error) {
	rctx, cancel := detached(ctx, s.cfg)
	defer cancel()

	if err := s.ledger.Release(rctx, eventID); err != nil {
		// 名額已與實際票數不一致，需要人工對帳
		s.log.Error("compensating release failed",
			zap.String("event_id", eventID.String()),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("ticket creation failed, seat released",
		zap.String("event_id", eventID.String()),
		zap.Error(cause),
	)
}

func (s *BookingServiceImpl) Cancel(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if _, err := ticket.Status.TransitionTo(model.TicketStatusCancelled); err != nil {
		return nil, err
	}

	// 狀態轉換與名額釋放在同一個儲存層交易內完成
	cancelled, err := s.tickets.Cancel(ctx, ticketID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.log.Info("ticket cancelled",
		zap.String("ticket_id", ticketID.String()),
		zap.String("event_id", cancelled.EventID.String()),
	)

	s.publish(ctx, model.TicketEventCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingServiceImpl) Refund(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	refunded, err := s.tickets.Transition(ctx, ticketID, model.TransitionParams{
		From: model.TicketStatusCancelled,
		To:   model.TicketStatusRefunded,
		At:   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.TicketEventRefunded, refunded)
	return refunded, nil
}

func (s *BookingServiceImpl) Get(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID == caller.UserID || caller.IsAdmin() || caller.Role == model.RoleStaff {
		return ticket, nil
	}
	event, err := s.events.FindByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManageEvent(event) {
		return nil, apperrors.ErrForbidden
	}
	return ticket, nil
}

func (s *BookingServiceImpl) ListMine(ctx context.Context, caller model.Identity) ([]*model.Ticket, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()
	return s.tickets.ListByUser(ctx, caller.UserID)
}

func (s *BookingServiceImpl) ListForEvent(ctx context.Context, caller model.Identity, eventID uuid.UUID) ([]*model.Ticket, error) {
	ctx, cancel := withStorageTimeout(ctx, s.cfg)
	defer cancel()

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManageEvent(event) {
		return nil, apperrors.ErrForbidden
	}
	return s.tickets.ListByEvent(ctx, eventID)
}

// publish is best-effort: a lost notification never undoes a committed change.
func (s *BookingServiceImpl) publish(ctx context.Context, typ model.TicketEventType, ticket *model.Ticket) {
	if s.queue == nil {
		return
	}
	pctx, cancel := detached(ctx, s.cfg)
	defer cancel()

	if err := s.queue.Publish(pctx, model.NewTicketEvent(typ, ticket, s.clock.Now())); err != nil {
		s.log.Warn("publish ticket event failed",
			zap.String("type", string(typ)),
			zap.String("ticket_id", ticket.ID.String()),
			zap.Error(err),
		)
	}
}

// resolveSeat 驗證座位：有座位圖時必須指定圖上的座位，自由入場時座位可省略
func resolveSeat(event *model.Event, requested *string) (*string, error) {
	var seat string
	if requested != nil {
		seat = strings.TrimSpace(*requested)
	}

	if event.HasAssignedSeating() {
		if seat == "" {
			return nil, fmt.Errorf("%w: this event requires a seat", apperrors.ErrInvalidSeat)
		}
		if !event.SeatingPlan.HasSeat(seat) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidSeat, seat)
		}
		return &seat, nil
	}

	if seat == "" {
		return nil, nil
	}
	return &seat, nil
}

func withStorageTimeout(ctx context.Context, cfg config.BookingConfig) (context.Context, context.CancelFunc) {
	if cfg.StorageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.StorageTimeout)
}

// detached keeps ctx values but not its cancellation, bounded by the compensation timeout.
func detached(ctx context.Context, cfg config.BookingConfig) (context.Context, context.CancelFunc) {
	timeout := cfg.CompensationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// IsBusinessRejection reports whether err is an expected outcome rather than a fault.
func IsBusinessRejection(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindUnknown, apperrors.KindTransient:
		return false
	}
	return !errors.Is(err, context.Canceled)
}
