package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
)

// Processor is the bot-boundary collaborator handed one user's pending
// activities when a survey should be sent.
type Processor interface {
	ProcessSurveyRequest(ctx context.Context, user identitydomain.User, pending PendingActivities) error
}

type Service interface {
	// FindNewSurveyEvents returns the user's unsurveyed activities, oldest
	// first per kind.
	FindNewSurveyEvents(ctx context.Context, user identitydomain.User) (PendingActivities, error)
	// LogSurveyRequested records the request entry for a chosen event. Callers
	// invoke it immediately after deciding to send, so the next selection
	// excludes the event.
	LogSurveyRequested(ctx context.Context, event PendingEvent, userID snowflake.ID) error
	// UpdateSurveyResult records the user's rating for a surveyed event, once.
	UpdateSurveyResult(ctx context.Context, eventID uuid.UUID, score int) error
	// LogDisconnectedSurveyResult records a rating with no linked event,
	// creating the user row when missing.
	LogDisconnectedSurveyResult(ctx context.Context, score int, upn string) (snowflake.ID, error)
	// StopBotheringUser sets the user's do-not-disturb time.
	StopBotheringUser(ctx context.Context, upn string, until time.Time) error
	// UsersWithActivity returns users owning at least one detail row.
	UsersWithActivity(ctx context.Context) ([]identitydomain.User, error)
	// ProcessAllUsers runs one survey batch and returns the number sent.
	ProcessAllUsers(ctx context.Context) (int, error)
}
