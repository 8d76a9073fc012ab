package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/handler"
	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	InvalidJSON = `{"invalid": json}`
)

// anonymous matches the nil viewer passed for requests without a token.
var anonymous = (*model.Identity)(nil)

func viewerIs(identity model.Identity) interface{} {
	return mock.MatchedBy(func(v *model.Identity) bool {
		return v != nil && *v == identity
	})
}

type testServer struct {
	router  *gin.Engine
	cfg     *config.Config
	events  *mocks.EventServiceMock
	booking *mocks.BookingServiceMock
	gate    *mocks.ValidationGateMock
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	cfg := config.LoadTestConfig()
	s := &testServer{
		cfg:     cfg,
		events:  mocks.NewEventServiceMock(),
		booking: mocks.NewBookingServiceMock(),
		gate:    mocks.NewValidationGateMock(),
	}
	s.router = handler.NewRouter(cfg,
		handler.NewEventHandler(s.events),
		handler.NewTicketHandler(s.booking, s.gate),
		nil,
	)
	return s
}

func (s *testServer) token(t *testing.T, identity model.Identity) string {
	t.Helper()
	token, err := handler.SignToken(s.cfg.Auth, identity, time.Hour)
	require.NoError(t, err)
	return token
}

func newIdentity(role model.Role) model.Identity {
	return model.Identity{UserID: uuid.New(), Role: role}
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if raw, ok := data.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body, authenticated when token is not empty
func createJSONHTTPRequest(method, url, token string, data interface{}) *http.Request {
	var body *bytes.Buffer
	if data != nil {
		body = createJSONRequest(data)
	} else {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
