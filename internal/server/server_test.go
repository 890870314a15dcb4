package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/officepulse/officepulse/internal/config"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	surveydomain "github.com/officepulse/officepulse/internal/survey/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubSurveyService struct {
	sent        int
	sendErr     error
	lastEventID uuid.UUID
	lastScore   int
	stopUPN     string
	stopErr     error
}

func (s *stubSurveyService) FindNewSurveyEvents(ctx context.Context, user identitydomain.User) (surveydomain.PendingActivities, error) {
	return surveydomain.PendingActivities{}, nil
}
func (s *stubSurveyService) LogSurveyRequested(ctx context.Context, event surveydomain.PendingEvent, userID snowflake.ID) error {
	return nil
}
func (s *stubSurveyService) UpdateSurveyResult(ctx context.Context, eventID uuid.UUID, score int) error {
	s.lastEventID = eventID
	s.lastScore = score
	return nil
}
func (s *stubSurveyService) LogDisconnectedSurveyResult(ctx context.Context, score int, upn string) (snowflake.ID, error) {
	return snowflake.ID(42), nil
}
func (s *stubSurveyService) StopBotheringUser(ctx context.Context, upn string, until time.Time) error {
	s.stopUPN = upn
	return s.stopErr
}
func (s *stubSurveyService) UsersWithActivity(ctx context.Context) ([]identitydomain.User, error) {
	return nil, nil
}
func (s *stubSurveyService) ProcessAllUsers(ctx context.Context) (int, error) {
	return s.sent, s.sendErr
}

func newServerFixture(stub *stubSurveyService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := NewServer(ServerParams{
		Cfg:    config.Config{},
		Log:    zap.NewNop(),
		Survey: stub,
	})
	return s.Engine()
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestSendSurveysReturnsCount(t *testing.T) {
	stub := &stubSurveyService{sent: 0}
	engine := newServerFixture(stub)

	w := postJSON(t, engine, "/api/triggers/send-surveys", nil)
	assert.Equal(t, http.StatusOK, w.Code, "zero sent surveys is still a success")
	assert.JSONEq(t, `{"sent": 0}`, w.Body.String())

	stub.sent = 3
	w = postJSON(t, engine, "/api/triggers/send-surveys", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sent": 3}`, w.Body.String())
}

func TestSurveyResultValidation(t *testing.T) {
	stub := &stubSurveyService{}
	engine := newServerFixture(stub)
	eventID := uuid.New()

	w := postJSON(t, engine, "/api/surveys/result", gin.H{"event_id": eventID.String(), "score": 4})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, eventID, stub.lastEventID)
	assert.Equal(t, 4, stub.lastScore)

	w = postJSON(t, engine, "/api/surveys/result", gin.H{"event_id": "not-a-uuid", "score": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, engine, "/api/surveys/result", gin.H{"event_id": eventID.String(), "score": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisconnectedSurveyResult(t *testing.T) {
	engine := newServerFixture(&stubSurveyService{})

	w := postJSON(t, engine, "/api/surveys/disconnected", gin.H{"upn": "amy@contoso.com", "score": 5})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": "42"}`, w.Body.String())

	w = postJSON(t, engine, "/api/surveys/disconnected", gin.H{"score": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStopBothering(t *testing.T) {
	stub := &stubSurveyService{}
	engine := newServerFixture(stub)

	until := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	w := postJSON(t, engine, "/api/surveys/stop", gin.H{"upn": "amy@contoso.com", "until": until})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "amy@contoso.com", stub.stopUPN)

	stub.stopErr = surveydomain.ErrUserNotFound
	w = postJSON(t, engine, "/api/surveys/stop", gin.H{"upn": "ghost@contoso.com", "until": until})
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown users map to 404")
}

func TestIngestAuditRejectsBadBody(t *testing.T) {
	engine := newServerFixture(&stubSurveyService{})

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/audit", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	engine := newServerFixture(&stubSurveyService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
