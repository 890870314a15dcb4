// Package domain holds the survey response model and the pending-activity
// selection types.
package domain

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("survey: user not found")

// SurveyResponse records a survey request and, once the user answers, the
// response. RelatedEventID links at most one response to an audit event; the
// link uniqueness is enforced by the selection exclusion query, not the
// schema.
type SurveyResponse struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID `gorm:"not null;index" json:"user_id"`
	RelatedEventID *uuid.UUID   `gorm:"type:uuid;index" json:"related_event_id"`
	Requested      time.Time    `gorm:"not null" json:"requested"`
	Responded      *time.Time   `json:"responded"`
	Rating         *int         `json:"rating"`
}

// TableName sets the database table name.
func (SurveyResponse) TableName() string { return "survey_responses" }

// EventKind tags which detail table a pending event came from.
type EventKind string

const (
	EventKindFile    EventKind = "file"
	EventKindMeeting EventKind = "meeting"
)

// PendingEvent is one unsurveyed copilot activity.
type PendingEvent struct {
	EventID   uuid.UUID `gorm:"column:event_id"`
	EventTime time.Time `gorm:"column:event_time"`
	Kind      EventKind `gorm:"-"`
}

// PendingActivities is the result of one selection pass, each list oldest
// first.
type PendingActivities struct {
	FileEvents    []PendingEvent
	MeetingEvents []PendingEvent
}

func (p PendingActivities) IsEmpty() bool {
	return len(p.FileEvents) == 0 && len(p.MeetingEvents) == 0
}

// GetNext returns the earliest pending event across both kinds, ties broken
// by ascending event id so selection is reproducible. Nil when empty.
func (p PendingActivities) GetNext() *PendingEvent {
	var next *PendingEvent
	for _, events := range [][]PendingEvent{p.FileEvents, p.MeetingEvents} {
		for i := range events {
			e := &events[i]
			if next == nil || before(e, next) {
				next = e
			}
		}
	}
	return next
}

func before(a, b *PendingEvent) bool {
	if !a.EventTime.Equal(b.EventTime) {
		return a.EventTime.Before(b.EventTime)
	}
	return bytes.Compare(a.EventID[:], b.EventID[:]) < 0
}

// Repository is the survey engine's data access surface.
type Repository interface {
	// LastRespondedAt returns the user's most recent completed-response time,
	// nil when the user has never responded.
	LastRespondedAt(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*time.Time, error)
	// UnsurveyedFileEvents returns the user's file events after from (all
	// when nil) not excluded by a survey response requested after from.
	UnsurveyedFileEvents(ctx context.Context, db *gorm.DB, userID snowflake.ID, from *time.Time) ([]PendingEvent, error)
	// UnsurveyedMeetingEvents is UnsurveyedFileEvents over meeting details.
	UnsurveyedMeetingEvents(ctx context.Context, db *gorm.DB, userID snowflake.ID, from *time.Time) ([]PendingEvent, error)
	Insert(ctx context.Context, db *gorm.DB, response *SurveyResponse) error
	// FindByEvent returns the response linked to the event, (nil, nil) when
	// none exists.
	FindByEvent(ctx context.Context, db *gorm.DB, eventID uuid.UUID) (*SurveyResponse, error)
	Save(ctx context.Context, db *gorm.DB, response *SurveyResponse) error
}
