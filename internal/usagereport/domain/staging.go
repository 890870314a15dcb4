package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Staging row types carry the same columns as their permanent tables but no
// indexes; the merge statement deduplicates against the permanent rows.

type TeamsActivityStagingRow struct {
	ID                         snowflake.ID
	UserID                     snowflake.ID
	Date                       time.Time
	PrivateChatMessageCount    int64 `gorm:"column:private_chat_count"`
	TeamChatMessageCount       int64 `gorm:"column:team_chat_count"`
	CallCount                  int64 `gorm:"column:calls_count"`
	MeetingCount               int64 `gorm:"column:meetings_count"`
	MeetingsAttendedCount      int64
	MeetingsOrganizedCount     int64
	AudioDurationSeconds       int
	VideoDurationSeconds       int
	ScreenShareDurationSeconds int `gorm:"column:screenshare_duration_seconds"`
}

type OutlookActivityStagingRow struct {
	ID                snowflake.ID
	UserID            snowflake.ID
	Date              time.Time
	ReadCount         int64
	ReceiveCount      int64
	SendCount         int64
	MeetingCreated    int64
	MeetingInteracted int64
}

type OneDriveActivityStagingRow struct {
	ID               snowflake.ID
	UserID           snowflake.ID
	Date             time.Time
	SharedInternally int64
	SharedExternally int64
	Synced           int64
	ViewedOrEdited   int64
}

type SharePointActivityStagingRow struct {
	ID               snowflake.ID
	UserID           snowflake.ID
	Date             time.Time
	SharedInternally int64
	SharedExternally int64
	Synced           int64
	ViewedOrEdited   int64
}

// Merge statements move a full staging set into the permanent table.
// Last-write-wins on (user_id, date); the staging table name is substituted
// by the batch. The WHERE true keeps sqlite's parser from reading the upsert
// clause as part of the SELECT.

const TeamsMergeSQL = `
INSERT INTO teams_user_activity_log
	(id, user_id, date, private_chat_count, team_chat_count, calls_count, meetings_count,
	 meetings_attended_count, meetings_organized_count,
	 audio_duration_seconds, video_duration_seconds, screenshare_duration_seconds)
SELECT id, user_id, date, private_chat_count, team_chat_count, calls_count, meetings_count,
	 meetings_attended_count, meetings_organized_count,
	 audio_duration_seconds, video_duration_seconds, screenshare_duration_seconds
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (user_id, date) DO UPDATE SET
	private_chat_count = excluded.private_chat_count,
	team_chat_count = excluded.team_chat_count,
	calls_count = excluded.calls_count,
	meetings_count = excluded.meetings_count,
	meetings_attended_count = excluded.meetings_attended_count,
	meetings_organized_count = excluded.meetings_organized_count,
	audio_duration_seconds = excluded.audio_duration_seconds,
	video_duration_seconds = excluded.video_duration_seconds,
	screenshare_duration_seconds = excluded.screenshare_duration_seconds`

const OutlookMergeSQL = `
INSERT INTO outlook_usage_activity_log
	(id, user_id, date, read_count, receive_count, send_count, meeting_created, meeting_interacted)
SELECT id, user_id, date, read_count, receive_count, send_count, meeting_created, meeting_interacted
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (user_id, date) DO UPDATE SET
	read_count = excluded.read_count,
	receive_count = excluded.receive_count,
	send_count = excluded.send_count,
	meeting_created = excluded.meeting_created,
	meeting_interacted = excluded.meeting_interacted`

const OneDriveMergeSQL = `
INSERT INTO onedrive_user_activity_log
	(id, user_id, date, shared_internally, shared_externally, synced, viewed_or_edited)
SELECT id, user_id, date, shared_internally, shared_externally, synced, viewed_or_edited
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (user_id, date) DO UPDATE SET
	shared_internally = excluded.shared_internally,
	shared_externally = excluded.shared_externally,
	synced = excluded.synced,
	viewed_or_edited = excluded.viewed_or_edited`

const SharePointMergeSQL = `
INSERT INTO sharepoint_user_activity_log
	(id, user_id, date, shared_internally, shared_externally, synced, viewed_or_edited)
SELECT id, user_id, date, shared_internally, shared_externally, synced, viewed_or_edited
FROM {{STAGING_TABLE}}
WHERE true
ON CONFLICT (user_id, date) DO UPDATE SET
	shared_internally = excluded.shared_internally,
	shared_externally = excluded.shared_externally,
	synced = excluded.synced,
	viewed_or_edited = excluded.viewed_or_edited`
