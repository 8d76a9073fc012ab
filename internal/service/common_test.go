package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/clock"
	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/internal/repository"
	"eventx-ticketing/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// recordingQueue keeps every published ticket event in memory.
type recordingQueue struct {
	mu     sync.Mutex
	events []*model.TicketEvent
}

func (q *recordingQueue) Publish(ctx context.Context, event *model.TicketEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func (q *recordingQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	ch := make(chan queue.Delivery)
	close(ch)
	return ch, nil
}

func (q *recordingQueue) types() []model.TicketEventType {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.TicketEventType, 0, len(q.events))
	for _, e := range q.events {
		out = append(out, e.Type)
	}
	return out
}

// faultyTickets fails Create or Cancel on demand so the error paths can be observed.
type faultyTickets struct {
	repository.TicketRepository
	createErr    error
	createErrs   []error // consumed one per call before createErr applies
	creates      int
	beforeCreate func()
	cancelErr    error
}

func (f *faultyTickets) Create(ctx context.Context, ticket *model.Ticket) error {
	f.creates++
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.createErr != nil {
		return f.createErr
	}
	return f.TicketRepository.Create(ctx, ticket)
}

func (f *faultyTickets) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*model.Ticket, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.TicketRepository.Cancel(ctx, id, at)
}

// interleavedEvents runs beforeReserve right before the conditional reserve,
// standing in for a concurrent writer that got there first.
type interleavedEvents struct {
	repository.EventRepository
	beforeReserve func(id uuid.UUID)
}

func (e *interleavedEvents) ReserveSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	if e.beforeReserve != nil {
		e.beforeReserve(id)
	}
	return e.EventRepository.ReserveSeat(ctx, id, at)
}

type testEnv struct {
	store     *memory.Store
	events    repository.EventRepository
	tickets   repository.TicketRepository
	ledger    *CapacityLedger
	queue     *recordingQueue
	booking   BookingService
	gate      ValidationGate
	eventsSvc EventService
	cfg       config.BookingConfig
	organizer model.Identity
	admin     model.Identity
	staff     model.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	return newTestEnvWithTickets(t, store, store.Tickets())
}

func newTestEnvWithTickets(t *testing.T, store *memory.Store, tickets repository.TicketRepository) *testEnv {
	t.Helper()
	return newTestEnvWith(t, store, store.Events(), tickets)
}

func newTestEnvWith(t *testing.T, store *memory.Store, events repository.EventRepository, tickets repository.TicketRepository) *testEnv {
	t.Helper()
	clk := clock.NewFixed(testNow)
	cfg := config.LoadTestConfig().Booking
	ledger := NewCapacityLedger(events, clk)
	q := &recordingQueue{}

	return &testEnv{
		store:     store,
		events:    events,
		tickets:   tickets,
		ledger:    ledger,
		queue:     q,
		booking:   NewBookingService(events, tickets, ledger, nil, q, clk, cfg),
		gate:      NewValidationGate(events, tickets, q, clk, cfg),
		eventsSvc: NewEventService(events, tickets, ledger, clk, cfg),
		cfg:       cfg,
		organizer: model.Identity{UserID: uuid.New(), Role: model.RoleOrganizer},
		admin:     model.Identity{UserID: uuid.New(), Role: model.RoleAdmin},
		staff:     model.Identity{UserID: uuid.New(), Role: model.RoleStaff},
	}
}

func (e *testEnv) createEvent(t *testing.T, capacity int, status model.EventStatus, plan *model.SeatingPlan) *model.Event {
	t.Helper()
	event := &model.Event{
		ID:          uuid.New(),
		OrganizerID: e.organizer.UserID,
		Title:       "Spring Concert",
		Venue:       "Main Hall",
		StartsAt:    testNow.Add(72 * time.Hour),
		Price:       1000,
		Capacity:    capacity,
		Status:      status,
		SeatingPlan: plan,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	require.NoError(t, e.events.Create(context.Background(), event))
	return event
}

func (e *testEnv) bookedSeats(t *testing.T, eventID uuid.UUID) int {
	t.Helper()
	event, err := e.events.FindByID(context.Background(), eventID)
	require.NoError(t, err)
	return event.BookedSeats
}

func newUser() model.Identity {
	return model.Identity{UserID: uuid.New(), Role: model.RoleUser}
}

func seat(s string) *string {
	return &s
}

func smallPlan() *model.SeatingPlan {
	return &model.SeatingPlan{Sections: []model.SeatSection{
		{Name: "A", Rows: []model.SeatRow{{Name: "1", Seats: []string{"A1-1", "A1-2", "A1-3"}}}},
	}}
}

func memoryStore() *memory.Store {
	return memory.NewStore()
}

// seatHoldingTickets counts active and used tickets of the event.
func (e *testEnv) seatHoldingTickets(t *testing.T, eventID uuid.UUID) int {
	t.Helper()
	tickets, err := e.store.Tickets().ListByEvent(context.Background(), eventID)
	require.NoError(t, err)
	n := 0
	for _, ticket := range tickets {
		if ticket.Status == model.TicketStatusActive || ticket.Status == model.TicketStatusUsed {
			n++
		}
	}
	return n
}
