package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Staging row types mirror the permanent tables without keys or indexes;
// rows are inserted via Table(name) into the per-environment staging table.

type AuditEventStagingRow struct {
	ID        uuid.UUID `gorm:"type:uuid"`
	EventTime time.Time `gorm:"column:event_time"`
	Operation string
	UserID    snowflake.ID
	Raw       datatypes.JSONMap `gorm:"column:raw"`
}

type FileDetailStagingRow struct {
	EventID       uuid.UUID `gorm:"type:uuid"`
	AppHost       string
	FileName      string
	FileExtension string
	URL           string `gorm:"column:url"`
	SiteURL       string `gorm:"column:site_url"`
}

type MeetingDetailStagingRow struct {
	EventID        uuid.UUID `gorm:"type:uuid"`
	AppHost        string
	MeetingID      string
	MeetingName    string
	MeetingCreated time.Time `gorm:"column:meeting_created"`
}

// Events are keyed by source GUID; re-imports of the same event are dropped.
// The WHERE true keeps sqlite's parser from reading the upsert clause as
// part of the SELECT.
const AuditEventMergeSQL = `
INSERT INTO audit_events (id, event_time, operation, user_id, raw)
SELECT id, event_time, operation, user_id, raw
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (id) DO NOTHING`

// Detail rows are keyed by event id; a re-enriched event keeps one row.
const FileDetailMergeSQL = `
INSERT INTO copilot_file_details (event_id, app_host, file_name, file_extension, url, site_url)
SELECT event_id, app_host, file_name, file_extension, url, site_url
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (event_id) DO UPDATE SET
	app_host = excluded.app_host,
	file_name = excluded.file_name,
	file_extension = excluded.file_extension,
	url = excluded.url,
	site_url = excluded.site_url`

const MeetingDetailMergeSQL = `
INSERT INTO copilot_meeting_details (event_id, app_host, meeting_id, meeting_name, meeting_created)
SELECT event_id, app_host, meeting_id, meeting_name, meeting_created
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (event_id) DO UPDATE SET
	app_host = excluded.app_host,
	meeting_id = excluded.meeting_id,
	meeting_name = excluded.meeting_name,
	meeting_created = excluded.meeting_created`
