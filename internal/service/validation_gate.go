package service

import (
	"context"
	"errors"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/clock"
	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"
	"eventx-ticketing/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ValidationGate interface {
	// 入場驗票：active -> used，重複驗票回傳 ErrTicketAlreadyUsed
	Validate(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.ValidationReceipt, error)
}

// ValidationGateImpl never touches the capacity ledger; a used ticket keeps its seat.
type ValidationGateImpl struct {
	events  repository.EventRepository
	tickets repository.TicketRepository
	queue   queue.TicketEventQueue
	clock   clock.Clock
	cfg     config.BookingConfig
	log     *zap.Logger
}

func NewValidationGate(
	events repository.EventRepository,
	tickets repository.TicketRepository,
	q queue.TicketEventQueue,
	clk clock.Clock,
	cfg config.BookingConfig,
) ValidationGate {
	return &ValidationGateImpl{
		events:  events,
		tickets: tickets,
		queue:   q,
		clock:   clk,
		cfg:     cfg,
		log:     logger.WithComponent("validation"),
	}
}

func (g *ValidationGateImpl) Validate(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.ValidationReceipt, error) {
	ctx, cancel := withStorageTimeout(ctx, g.cfg)
	defer cancel()

	ticket, err := g.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := g.events.FindByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if !caller.CanScan(event) {
		return nil, apperrors.ErrForbidden
	}
	if err := scanRejection(ticket.Status); err != nil {
		return nil, err
	}

	by := caller.UserID
	used, err := g.tickets.Transition(ctx, ticketID, model.TransitionParams{
		From: model.TicketStatusActive,
		To:   model.TicketStatusUsed,
		At:   g.clock.Now(),
		By:   &by,
	})
	if errors.Is(err, apperrors.ErrInvalidState) {
		// 並發掃描輸掉 compare-and-set，依最新狀態回報
		current, ferr := g.tickets.FindByID(ctx, ticketID)
		if ferr != nil {
			return nil, ferr
		}
		if rerr := scanRejection(current.Status); rerr != nil {
			return nil, rerr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	g.log.Info("ticket validated",
		zap.String("ticket_id", used.ID.String()),
		zap.String("event_id", event.ID.String()),
		zap.String("scanned_by", caller.UserID.String()),
	)
	g.publish(ctx, used)

	return &model.ValidationReceipt{
		TicketID:     used.ID,
		TicketNumber: used.TicketNumber,
		SeatNumber:   used.SeatNumber,
		HolderID:     used.UserID,
		EventID:      event.ID,
		EventTitle:   event.Title,
		Venue:        event.Venue,
		StartsAt:     event.StartsAt,
		UsedAt:       *used.UsedAt,
	}, nil
}

func (g *ValidationGateImpl) publish(ctx context.Context, ticket *model.Ticket) {
	if g.queue == nil {
		return
	}
	pctx, cancel := detached(ctx, g.cfg)
	defer cancel()
	if err := g.queue.Publish(pctx, model.NewTicketEvent(model.TicketEventUsed, ticket, g.clock.Now())); err != nil {
		g.log.Warn("publish ticket event failed", zap.String("ticket_id", ticket.ID.String()), zap.Error(err))
	}
}

// scanRejection maps a non-active status to the error shown at the gate.
func scanRejection(status model.TicketStatus) error {
	switch status {
	case model.TicketStatusActive:
		return nil
	case model.TicketStatusUsed:
		return apperrors.ErrTicketAlreadyUsed
	case model.TicketStatusCancelled, model.TicketStatusRefunded:
		return apperrors.ErrTicketCancelled
	default:
		return apperrors.ErrInvalidState
	}
}
