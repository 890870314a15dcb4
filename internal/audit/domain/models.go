// Package domain holds the copilot audit event model and its typed detail
// rows. Event ids are GUIDs assigned by the source system, not generated
// locally.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEvent is one raw copilot interaction record. It owns at most one
// detail row, either file or meeting, never both.
type AuditEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EventTime time.Time         `gorm:"column:event_time;not null;index" json:"event_time"`
	Operation string            `gorm:"type:text;not null" json:"operation"`
	UserID    snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Raw       datatypes.JSONMap `gorm:"column:raw" json:"raw"`
}

// TableName sets the database table name.
func (AuditEvent) TableName() string { return "audit_events" }

// CopilotFileDetail is the file specialization of an audit event.
type CopilotFileDetail struct {
	EventID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	AppHost       string    `gorm:"type:text" json:"app_host"`
	FileName      string    `gorm:"type:text;not null" json:"file_name"`
	FileExtension string    `gorm:"type:text" json:"file_extension"`
	URL           string    `gorm:"column:url;type:text;not null" json:"url"`
	SiteURL       string    `gorm:"column:site_url;type:text" json:"site_url"`
}

// TableName sets the database table name.
func (CopilotFileDetail) TableName() string { return "copilot_file_details" }

// CopilotMeetingDetail is the meeting specialization of an audit event.
type CopilotMeetingDetail struct {
	EventID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	AppHost        string    `gorm:"type:text" json:"app_host"`
	MeetingID      string    `gorm:"type:text;not null" json:"meeting_id"`
	MeetingName    string    `gorm:"type:text" json:"meeting_name"`
	MeetingCreated time.Time `gorm:"column:meeting_created" json:"meeting_created"`
}

// TableName sets the database table name.
func (CopilotMeetingDetail) TableName() string { return "copilot_meeting_details" }

// Repository reads persisted audit events for downstream consumers. The
// survey selection queries join these tables directly and live with the
// survey engine.
type Repository interface {
	// UserIDsWithActivity returns ids of users owning at least one detail row.
	UserIDsWithActivity(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}
