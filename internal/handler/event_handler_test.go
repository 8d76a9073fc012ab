package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventx-ticketing/internal/model"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListEvents(t *testing.T) {
	t.Run("Success - Public With Filter", func(t *testing.T) {
		s := setupTestRouter(t)
		active := model.EventStatusActive
		s.events.On("List", mock.Anything, anonymous, model.EventFilter{Status: &active, Page: 2, Limit: 5}).
			Return([]*model.Event{{ID: uuid.New(), Status: active}}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/events?status=active&page=2&limit=5", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Events []model.Event `json:"events"`
			Page   int           `json:"page"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Events, 1)
		assert.Equal(t, 2, body.Page)
		s.events.AssertExpectations(t)
	})

	t.Run("Success - Organizer Passes Identity", func(t *testing.T) {
		s := setupTestRouter(t)
		organizer := newIdentity(model.RoleOrganizer)
		s.events.On("List", mock.Anything, viewerIs(organizer), model.EventFilter{OrganizerID: &organizer.UserID, Page: 1, Limit: 10}).
			Return([]*model.Event{{ID: uuid.New(), Status: model.EventStatusDraft}}, nil).Once()

		req := createJSONHTTPRequest("GET", "/api/v1/events?organizer_id="+organizer.UserID.String(), s.token(t, organizer), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		s.events.AssertExpectations(t)
	})

	t.Run("Failed - Invalid Token", func(t *testing.T) {
		s := setupTestRouter(t)

		req := createJSONHTTPRequest("GET", "/api/v1/events", "not-a-token", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		s.events.AssertNotCalled(t, "List")
	})

	t.Run("Failed - Invalid Organizer", func(t *testing.T) {
		s := setupTestRouter(t)

		req := httptest.NewRequest("GET", "/api/v1/events?organizer_id=nope", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.events.AssertNotCalled(t, "List")
	})
}

func TestGetEvent(t *testing.T) {
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Get", mock.Anything, anonymous, eventID).Return(&model.Event{ID: eventID, Capacity: 10}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String(), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Failed - ErrEventNotFound", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Get", mock.Anything, anonymous, eventID).Return(nil, apperrors.ErrEventNotFound).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String(), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Success - Draft For Organizer", func(t *testing.T) {
		s := setupTestRouter(t)
		organizer := newIdentity(model.RoleOrganizer)
		s.events.On("Get", mock.Anything, viewerIs(organizer), eventID).
			Return(&model.Event{ID: eventID, OrganizerID: organizer.UserID, Status: model.EventStatusDraft}, nil).Once()

		req := createJSONHTTPRequest("GET", "/api/v1/events/"+eventID.String(), s.token(t, organizer), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		s.events.AssertExpectations(t)
	})

	t.Run("SeatMap", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("SeatMap", mock.Anything, anonymous, eventID).Return(&model.SeatMap{
			EventID:     eventID,
			BookedSeats: []string{"A1-1"},
			Capacity:    3,
			Available:   2,
		}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String()+"/seats", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var seatMap model.SeatMap
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seatMap))
		assert.Equal(t, []string{"A1-1"}, seatMap.BookedSeats)
	})
}

func TestCreateEvent(t *testing.T) {
	organizer := newIdentity(model.RoleOrganizer)
	body := model.CreateEventRequest{
		Title:    "Jazz Night",
		Venue:    "Blue Room",
		StartsAt: time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC),
		Price:    800,
		Capacity: 100,
	}

	t.Run("Success", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Create", mock.Anything, organizer, mock.MatchedBy(func(req model.CreateEventRequest) bool {
			return req.Title == body.Title && req.Capacity == body.Capacity && req.StartsAt.Equal(body.StartsAt)
		})).Return(&model.Event{
			ID:       uuid.New(),
			Title:    body.Title,
			Capacity: body.Capacity,
			Status:   model.EventStatusDraft,
		}, nil).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/events", s.token(t, organizer), body)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		s.events.AssertExpectations(t)
	})

	t.Run("Failed - User Role", func(t *testing.T) {
		s := setupTestRouter(t)

		req := createJSONHTTPRequest("POST", "/api/v1/events", s.token(t, newIdentity(model.RoleUser)), body)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		s.events.AssertNotCalled(t, "Create")
	})

	t.Run("Failed - BindingError", func(t *testing.T) {
		s := setupTestRouter(t)

		req := createJSONHTTPRequest("POST", "/api/v1/events", s.token(t, organizer), model.CreateEventRequest{Title: "No venue"})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.events.AssertNotCalled(t, "Create")
	})
}

func TestUpdateEventStatus(t *testing.T) {
	organizer := newIdentity(model.RoleOrganizer)
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("UpdateStatus", mock.Anything, organizer, eventID, model.EventStatusUpcoming).
			Return(&model.Event{ID: eventID, Status: model.EventStatusUpcoming}, nil).Once()

		req := createJSONHTTPRequest("PATCH", "/api/v1/events/"+eventID.String()+"/status", s.token(t, organizer),
			model.UpdateEventStatusRequest{Status: model.EventStatusUpcoming})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Failed - ErrInvalidStatusTransition", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("UpdateStatus", mock.Anything, organizer, eventID, model.EventStatusClosed).
			Return(nil, apperrors.ErrInvalidStatusTransition).Once()

		req := createJSONHTTPRequest("PATCH", "/api/v1/events/"+eventID.String()+"/status", s.token(t, organizer),
			model.UpdateEventStatusRequest{Status: model.EventStatusClosed})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestResizeEvent(t *testing.T) {
	organizer := newIdentity(model.RoleOrganizer)
	eventID := uuid.New()

	t.Run("Success - Zero Pauses Sales", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Resize", mock.Anything, organizer, eventID, 0).
			Return(&model.Event{ID: eventID, Capacity: 0}, nil).Once()

		req := createJSONHTTPRequest("PUT", "/api/v1/events/"+eventID.String()+"/capacity", s.token(t, organizer),
			map[string]int{"capacity": 0})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		s.events.AssertExpectations(t)
	})

	t.Run("Failed - ErrBelowSoldCount", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Resize", mock.Anything, organizer, eventID, 5).Return(nil, apperrors.ErrBelowSoldCount).Once()

		req := createJSONHTTPRequest("PUT", "/api/v1/events/"+eventID.String()+"/capacity", s.token(t, organizer),
			map[string]int{"capacity": 5})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		s.events.AssertExpectations(t)
	})

	t.Run("Failed - Negative Capacity", func(t *testing.T) {
		s := setupTestRouter(t)

		req := createJSONHTTPRequest("PUT", "/api/v1/events/"+eventID.String()+"/capacity", s.token(t, organizer),
			map[string]int{"capacity": -1})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.events.AssertNotCalled(t, "Resize")
	})

	t.Run("Failed - Missing Capacity", func(t *testing.T) {
		s := setupTestRouter(t)

		req := createJSONHTTPRequest("PUT", "/api/v1/events/"+eventID.String()+"/capacity", s.token(t, organizer),
			map[string]int{})
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.events.AssertNotCalled(t, "Resize")
	})
}

func TestDeleteEvent(t *testing.T) {
	admin := newIdentity(model.RoleAdmin)
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Delete", mock.Anything, admin, eventID).Return(nil).Once()

		req := createJSONHTTPRequest("DELETE", "/api/v1/events/"+eventID.String(), s.token(t, admin), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Failed - ErrEventHasActiveTickets", func(t *testing.T) {
		s := setupTestRouter(t)
		s.events.On("Delete", mock.Anything, admin, eventID).Return(apperrors.ErrEventHasActiveTickets).Once()

		req := createJSONHTTPRequest("DELETE", "/api/v1/events/"+eventID.String(), s.token(t, admin), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPing(t *testing.T) {
	s := setupTestRouter(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
