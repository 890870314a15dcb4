package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/officepulse/officepulse/internal/audit/domain"
	auditrepository "github.com/officepulse/officepulse/internal/audit/repository"
	"github.com/officepulse/officepulse/internal/clock"
	"github.com/officepulse/officepulse/internal/config"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	identityrepository "github.com/officepulse/officepulse/internal/identity/repository"
	"github.com/officepulse/officepulse/internal/survey/domain"
	"github.com/officepulse/officepulse/internal/survey/repository"
	dbpkg "github.com/officepulse/officepulse/pkg/db"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeProcessor struct {
	failFor string
	calls   []string
}

func (p *fakeProcessor) ProcessSurveyRequest(ctx context.Context, user identitydomain.User, pending domain.PendingActivities) error {
	p.calls = append(p.calls, user.UserPrincipalName)
	if p.failFor != "" && user.UserPrincipalName == p.failFor {
		return assert.AnError
	}
	return nil
}

type fixture struct {
	db        *gorm.DB
	clock     *clock.FakeClock
	node      *snowflake.Node
	processor *fakeProcessor
	svc       domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := dbpkg.NewTest()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.AutoMigrate(
		&identitydomain.User{},
		&auditdomain.AuditEvent{},
		&auditdomain.CopilotFileDetail{},
		&auditdomain.CopilotMeetingDetail{},
		&domain.SurveyResponse{},
	); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	fc := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	processor := &fakeProcessor{}

	svc := NewService(Params{
		Log:       zap.NewNop(),
		DB:        conn,
		Clock:     fc,
		GenID:     node,
		Settings:  config.NewStaticImportSettings(config.DefaultImportSettings()),
		Repo:      repository.Provide(),
		Users:     identityrepository.Provide(),
		Audit:     auditrepository.Provide(),
		Processor: processor,
	})
	return &fixture{db: conn, clock: fc, node: node, processor: processor, svc: svc}
}

func (f *fixture) seedUser(t *testing.T, upn string) identitydomain.User {
	t.Helper()
	user := identitydomain.User{
		ID:                f.node.Generate(),
		UserPrincipalName: upn,
		CreatedAt:         f.clock.Now(),
		UpdatedAt:         f.clock.Now(),
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	return user
}

func (f *fixture) seedFileEvent(t *testing.T, userID snowflake.ID, at time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	event := auditdomain.AuditEvent{ID: id, EventTime: at, Operation: "CopilotInteraction", UserID: userID}
	if err := f.db.Create(&event).Error; err != nil {
		t.Fatal(err)
	}
	detail := auditdomain.CopilotFileDetail{EventID: id, FileName: "plan.docx", FileExtension: "docx", URL: "https://contoso.sharepoint.com/sites/hr/plan.docx"}
	if err := f.db.Create(&detail).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) seedMeetingEvent(t *testing.T, userID snowflake.ID, at time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	event := auditdomain.AuditEvent{ID: id, EventTime: at, Operation: "CopilotInteraction", UserID: userID}
	if err := f.db.Create(&event).Error; err != nil {
		t.Fatal(err)
	}
	detail := auditdomain.CopilotMeetingDetail{EventID: id, MeetingID: "m1", MeetingName: "Standup", MeetingCreated: at}
	if err := f.db.Create(&detail).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func TestFindNewSurveyEventsExcludesRequested(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "amy@contoso.com")

	base := f.clock.Now().Add(-48 * time.Hour)
	oldest := f.seedFileEvent(t, user.ID, base)
	f.seedFileEvent(t, user.ID, base.Add(2*time.Hour))
	f.seedMeetingEvent(t, user.ID, base.Add(time.Hour))

	pending, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, pending.FileEvents, 2)
	assert.Len(t, pending.MeetingEvents, 1)

	next := pending.GetNext()
	if next == nil {
		t.Fatal("expected a pending event")
	}
	assert.Equal(t, oldest, next.EventID, "oldest event is surveyed first")

	if err := f.svc.LogSurveyRequested(ctx, *next, user.ID); err != nil {
		t.Fatal(err)
	}

	// Requested but unanswered surveys keep their event excluded, so
	// re-running the selection never re-offers it.
	again, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, again.FileEvents, 1)
	assert.Len(t, again.MeetingEvents, 1)
	for _, e := range again.FileEvents {
		assert.NotEqual(t, oldest, e.EventID)
	}
}

func TestFindNewSurveyEventsRequeryIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "amy@contoso.com")

	base := f.clock.Now().Add(-24 * time.Hour)
	f.seedFileEvent(t, user.ID, base)
	f.seedFileEvent(t, user.ID, base.Add(time.Hour))
	f.seedMeetingEvent(t, user.ID, base.Add(30*time.Minute))

	first, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, first.FileEvents, second.FileEvents)
	assert.Equal(t, first.MeetingEvents, second.MeetingEvents)
	assert.Equal(t, first.GetNext().EventID, second.GetNext().EventID)
}

func TestRespondedSurveyAdvancesWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "amy@contoso.com")

	base := f.clock.Now().Add(-48 * time.Hour)
	surveyed := f.seedFileEvent(t, user.ID, base)
	f.seedFileEvent(t, user.ID, base.Add(time.Hour))

	pending, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.LogSurveyRequested(ctx, *pending.GetNext(), user.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.UpdateSurveyResult(ctx, surveyed, 4); err != nil {
		t.Fatal(err)
	}

	// The response time becomes the watermark: only activity after it is
	// offered, so the older unsurveyed event drops out.
	after, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, after.IsEmpty())

	f.clock.Advance(time.Hour)
	fresh := f.seedFileEvent(t, user.ID, f.clock.Now())

	after, err = f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.FileEvents) != 1 {
		t.Fatalf("expected 1 fresh event, got %d", len(after.FileEvents))
	}
	assert.Equal(t, fresh, after.FileEvents[0].EventID)
}

func TestUpdateSurveyResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "amy@contoso.com")
	eventID := f.seedFileEvent(t, user.ID, f.clock.Now().Add(-time.Hour))

	pending, err := f.svc.FindNewSurveyEvents(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.LogSurveyRequested(ctx, *pending.GetNext(), user.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.UpdateSurveyResult(ctx, eventID, 5); err != nil {
		t.Fatal(err)
	}

	var response domain.SurveyResponse
	if err := f.db.Where("related_event_id = ?", eventID).First(&response).Error; err != nil {
		t.Fatal(err)
	}
	if response.Rating == nil || response.Responded == nil {
		t.Fatal("expected rating and responded to be set")
	}
	assert.Equal(t, 5, *response.Rating)

	// A second answer for the same event is ignored, not overwritten.
	if err := f.svc.UpdateSurveyResult(ctx, eventID, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.db.Where("related_event_id = ?", eventID).First(&response).Error; err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 5, *response.Rating)
}

func TestUpdateSurveyResultUnknownEventIsIgnored(t *testing.T) {
	f := newFixture(t)

	err := f.svc.UpdateSurveyResult(context.Background(), uuid.New(), 3)
	assert.NoError(t, err)

	var count int64
	f.db.Model(&domain.SurveyResponse{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestLogDisconnectedSurveyResultCreatesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.LogDisconnectedSurveyResult(ctx, 2, "new@contoso.com")
	if err != nil {
		t.Fatal(err)
	}

	var response domain.SurveyResponse
	if err := f.db.First(&response, "id = ?", id).Error; err != nil {
		t.Fatal(err)
	}
	assert.Nil(t, response.RelatedEventID)
	if response.Rating == nil || response.Responded == nil {
		t.Fatal("disconnected result must be recorded as answered")
	}
	assert.Equal(t, 2, *response.Rating)

	var user identitydomain.User
	if err := f.db.Where("user_principal_name = ?", "new@contoso.com").First(&user).Error; err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, user.ID, response.UserID)
}

func TestStopBotheringUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "amy@contoso.com")

	until := f.clock.Now().Add(7 * 24 * time.Hour)
	if err := f.svc.StopBotheringUser(ctx, user.UserPrincipalName, until); err != nil {
		t.Fatal(err)
	}

	var saved identitydomain.User
	if err := f.db.First(&saved, "id = ?", user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if saved.MessageNotBefore == nil {
		t.Fatal("expected MessageNotBefore to be set")
	}
	assert.True(t, saved.MessageNotBefore.Equal(until))

	err := f.svc.StopBotheringUser(ctx, "ghost@contoso.com", until)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProcessAllUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.seedUser(t, "amy@contoso.com")
	dnd := f.seedUser(t, "bob@contoso.com")
	f.seedUser(t, "idle@contoso.com")

	notBefore := f.clock.Now().Add(24 * time.Hour)
	dnd.MessageNotBefore = &notBefore
	if err := f.db.Save(&dnd).Error; err != nil {
		t.Fatal(err)
	}

	at := f.clock.Now().Add(-2 * time.Hour)
	f.seedFileEvent(t, active.ID, at)
	f.seedMeetingEvent(t, dnd.ID, at)

	sent, err := f.svc.ProcessAllUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"amy@contoso.com"}, f.processor.calls,
		"do-not-disturb users and users without activity are skipped")

	var count int64
	f.db.Model(&domain.SurveyResponse{}).Where("user_id = ?", active.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	// Re-running sends nothing: the pending survey excludes the event.
	f.processor.calls = nil
	sent, err = f.svc.ProcessAllUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, sent)
	assert.Empty(t, f.processor.calls)
}

func TestProcessAllUsersHonorsPerRunCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings := config.DefaultImportSettings()
	settings.SurveysPerRun = 1
	capped := NewService(Params{
		Log:       zap.NewNop(),
		DB:        f.db,
		Clock:     f.clock,
		GenID:     f.node,
		Settings:  config.NewStaticImportSettings(settings),
		Repo:      repository.Provide(),
		Users:     identityrepository.Provide(),
		Audit:     auditrepository.Provide(),
		Processor: f.processor,
	})

	amy := f.seedUser(t, "amy@contoso.com")
	bob := f.seedUser(t, "bob@contoso.com")
	at := f.clock.Now().Add(-2 * time.Hour)
	f.seedFileEvent(t, amy.ID, at)
	f.seedFileEvent(t, bob.ID, at)

	sent, err := capped.ProcessAllUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, sent)

	// The next run picks up where the cap cut off.
	sent, err = capped.ProcessAllUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"amy@contoso.com", "bob@contoso.com"}, f.processor.calls)
}

func TestProcessAllUsersSendFailureContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	amy := f.seedUser(t, "amy@contoso.com")
	bob := f.seedUser(t, "bob@contoso.com")
	at := f.clock.Now().Add(-2 * time.Hour)
	f.seedFileEvent(t, amy.ID, at)
	f.seedFileEvent(t, bob.ID, at)

	f.processor.failFor = "amy@contoso.com"

	sent, err := f.svc.ProcessAllUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, sent)

	var count int64
	f.db.Model(&domain.SurveyResponse{}).Where("user_id = ?", amy.ID).Count(&count)
	assert.Equal(t, int64(0), count, "a failed send must not log a survey request")
	f.db.Model(&domain.SurveyResponse{}).Where("user_id = ?", bob.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
