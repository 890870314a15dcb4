package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/officepulse/officepulse/internal/audit/domain"
	dbpkg "github.com/officepulse/officepulse/pkg/db"
	"github.com/stretchr/testify/assert"
)

func TestUserIDsWithActivity(t *testing.T) {
	conn, err := dbpkg.NewTest()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.AutoMigrate(
		&domain.AuditEvent{},
		&domain.CopilotFileDetail{},
		&domain.CopilotMeetingDetail{},
	); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	fileUser := node.Generate()
	meetingUser := node.Generate()
	bareUser := node.Generate()
	at := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	fileEvent := domain.AuditEvent{ID: uuid.New(), EventTime: at, Operation: "CopilotInteraction", UserID: fileUser}
	meetingEvent := domain.AuditEvent{ID: uuid.New(), EventTime: at, Operation: "CopilotInteraction", UserID: meetingUser}
	// An event without any detail row does not count as activity.
	bareEvent := domain.AuditEvent{ID: uuid.New(), EventTime: at, Operation: "CopilotInteraction", UserID: bareUser}
	for _, e := range []domain.AuditEvent{fileEvent, meetingEvent, bareEvent} {
		if err := conn.Create(&e).Error; err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.Create(&domain.CopilotFileDetail{EventID: fileEvent.ID, FileName: "plan.docx", URL: "https://contoso.sharepoint.com/plan.docx"}).Error; err != nil {
		t.Fatal(err)
	}
	if err := conn.Create(&domain.CopilotMeetingDetail{EventID: meetingEvent.ID, MeetingID: "m1", MeetingCreated: at}).Error; err != nil {
		t.Fatal(err)
	}

	ids, err := Provide().UserIDsWithActivity(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []snowflake.ID{fileUser, meetingUser}, ids)
}
