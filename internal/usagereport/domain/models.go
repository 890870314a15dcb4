// Package domain contains persistence models for per-workload usage activity
// logs. Each table holds at most one row per (user, date); re-imports of the
// same date supersede the old row through the staging merge.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TeamsUserActivityLog is what a user has been up to in Teams on a given date.
type TeamsUserActivityLog struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"not null;uniqueIndex:ux_teams_activity_user_date,priority:1" json:"user_id"`
	Date   time.Time    `gorm:"not null;uniqueIndex:ux_teams_activity_user_date,priority:2" json:"date"`

	PrivateChatMessageCount   int64 `gorm:"column:private_chat_count;not null" json:"private_chat_count"`
	TeamChatMessageCount      int64 `gorm:"column:team_chat_count;not null" json:"team_chat_count"`
	CallCount                 int64 `gorm:"column:calls_count;not null" json:"calls_count"`
	MeetingCount              int64 `gorm:"column:meetings_count;not null" json:"meetings_count"`
	MeetingsAttendedCount     int64 `gorm:"not null" json:"meetings_attended_count"`
	MeetingsOrganizedCount    int64 `gorm:"not null" json:"meetings_organized_count"`
	AudioDurationSeconds      int   `gorm:"not null" json:"audio_duration_seconds"`
	VideoDurationSeconds      int   `gorm:"not null" json:"video_duration_seconds"`
	ScreenShareDurationSeconds int  `gorm:"column:screenshare_duration_seconds;not null" json:"screenshare_duration_seconds"`
}

// TableName sets the database table name.
func (TeamsUserActivityLog) TableName() string { return "teams_user_activity_log" }

// OutlookUsageActivityLog is a user's email activity on a given date.
type OutlookUsageActivityLog struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"not null;uniqueIndex:ux_outlook_activity_user_date,priority:1" json:"user_id"`
	Date   time.Time    `gorm:"not null;uniqueIndex:ux_outlook_activity_user_date,priority:2" json:"date"`

	ReadCount         int64 `gorm:"not null" json:"read_count"`
	ReceiveCount      int64 `gorm:"not null" json:"receive_count"`
	SendCount         int64 `gorm:"not null" json:"send_count"`
	MeetingCreated    int64 `gorm:"not null" json:"meeting_created"`
	MeetingInteracted int64 `gorm:"not null" json:"meeting_interacted"`
}

// TableName sets the database table name.
func (OutlookUsageActivityLog) TableName() string { return "outlook_usage_activity_log" }

// OneDriveUserActivityLog is a user's OneDrive activity on a given date.
type OneDriveUserActivityLog struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"not null;uniqueIndex:ux_onedrive_activity_user_date,priority:1" json:"user_id"`
	Date   time.Time    `gorm:"not null;uniqueIndex:ux_onedrive_activity_user_date,priority:2" json:"date"`

	SharedInternally int64 `gorm:"not null" json:"shared_internally"`
	SharedExternally int64 `gorm:"not null" json:"shared_externally"`
	Synced           int64 `gorm:"not null" json:"synced"`
	ViewedOrEdited   int64 `gorm:"not null" json:"viewed_or_edited"`
}

// TableName sets the database table name.
func (OneDriveUserActivityLog) TableName() string { return "onedrive_user_activity_log" }

// SharePointUserActivityLog is a user's SharePoint activity on a given date.
type SharePointUserActivityLog struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"not null;uniqueIndex:ux_sharepoint_activity_user_date,priority:1" json:"user_id"`
	Date   time.Time    `gorm:"not null;uniqueIndex:ux_sharepoint_activity_user_date,priority:2" json:"date"`

	SharedInternally int64 `gorm:"not null" json:"shared_internally"`
	SharedExternally int64 `gorm:"not null" json:"shared_externally"`
	Synced           int64 `gorm:"not null" json:"synced"`
	ViewedOrEdited   int64 `gorm:"not null" json:"viewed_or_edited"`
}

// TableName sets the database table name.
func (SharePointUserActivityLog) TableName() string { return "sharepoint_user_activity_log" }
