// Package mocks holds testify mocks of the service interfaces for handler tests.
package mocks

import (
	"context"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var (
	_ service.EventService   = (*EventServiceMock)(nil)
	_ service.BookingService = (*BookingServiceMock)(nil)
	_ service.ValidationGate = (*ValidationGateMock)(nil)
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func event(args mock.Arguments) (*model.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Create(ctx context.Context, caller model.Identity, req model.CreateEventRequest) (*model.Event, error) {
	return event(m.Called(ctx, caller, req))
}

func (m *EventServiceMock) Get(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.Event, error) {
	return event(m.Called(ctx, viewer, eventID))
}

func (m *EventServiceMock) List(ctx context.Context, viewer *model.Identity, filter model.EventFilter) ([]*model.Event, error) {
	args := m.Called(ctx, viewer, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) Update(ctx context.Context, caller model.Identity, eventID uuid.UUID, req model.UpdateEventRequest) (*model.Event, error) {
	return event(m.Called(ctx, caller, eventID, req))
}

func (m *EventServiceMock) UpdateStatus(ctx context.Context, caller model.Identity, eventID uuid.UUID, status model.EventStatus) (*model.Event, error) {
	return event(m.Called(ctx, caller, eventID, status))
}

func (m *EventServiceMock) Resize(ctx context.Context, caller model.Identity, eventID uuid.UUID, capacity int) (*model.Event, error) {
	return event(m.Called(ctx, caller, eventID, capacity))
}

func (m *EventServiceMock) Delete(ctx context.Context, caller model.Identity, eventID uuid.UUID) error {
	args := m.Called(ctx, caller, eventID)
	return args.Error(0)
}

func (m *EventServiceMock) SeatMap(ctx context.Context, viewer *model.Identity, eventID uuid.UUID) (*model.SeatMap, error) {
	args := m.Called(ctx, viewer, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SeatMap), args.Error(1)
}

type BookingServiceMock struct {
	mock.Mock
}

func NewBookingServiceMock() *BookingServiceMock {
	return &BookingServiceMock{}
}

func ticket(args mock.Arguments) (*model.Ticket, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func tickets(args mock.Arguments) ([]*model.Ticket, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *BookingServiceMock) Book(ctx context.Context, caller model.Identity, req model.BookRequest) (*model.Ticket, error) {
	return ticket(m.Called(ctx, caller, req))
}

func (m *BookingServiceMock) Cancel(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error) {
	return ticket(m.Called(ctx, caller, ticketID))
}

func (m *BookingServiceMock) Refund(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error) {
	return ticket(m.Called(ctx, caller, ticketID))
}

func (m *BookingServiceMock) Get(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.Ticket, error) {
	return ticket(m.Called(ctx, caller, ticketID))
}

func (m *BookingServiceMock) ListMine(ctx context.Context, caller model.Identity) ([]*model.Ticket, error) {
	return tickets(m.Called(ctx, caller))
}

func (m *BookingServiceMock) ListForEvent(ctx context.Context, caller model.Identity, eventID uuid.UUID) ([]*model.Ticket, error) {
	return tickets(m.Called(ctx, caller, eventID))
}

type ValidationGateMock struct {
	mock.Mock
}

func NewValidationGateMock() *ValidationGateMock {
	return &ValidationGateMock{}
}

func (m *ValidationGateMock) Validate(ctx context.Context, caller model.Identity, ticketID uuid.UUID) (*model.ValidationReceipt, error) {
	args := m.Called(ctx, caller, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ValidationReceipt), args.Error(1)
}
