package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/officepulse/officepulse/internal/survey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// LastRespondedAt is the user's most recent responded timestamp, nil for a
// user who has never answered a survey.
func (r *repo) LastRespondedAt(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*time.Time, error) {
	var latest domain.SurveyResponse
	err := db.WithContext(ctx).
		Where("user_id = ? AND responded IS NOT NULL", userID).
		Order("responded DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return latest.Responded, nil
}

func (r *repo) UnsurveyedFileEvents(ctx context.Context, db *gorm.DB, userID snowflake.ID, from *time.Time) ([]domain.PendingEvent, error) {
	return r.unsurveyedEvents(ctx, db, "copilot_file_details", domain.EventKindFile, userID, from)
}

func (r *repo) UnsurveyedMeetingEvents(ctx context.Context, db *gorm.DB, userID snowflake.ID, from *time.Time) ([]domain.PendingEvent, error) {
	return r.unsurveyedEvents(ctx, db, "copilot_meeting_details", domain.EventKindMeeting, userID, from)
}

// unsurveyedEvents selects the user's detail events excluding any linked to
// a survey response requested after from. With from nil (user never
// responded) every linked event is excluded, so a pending survey is never
// re-offered.
func (r *repo) unsurveyedEvents(ctx context.Context, db *gorm.DB, detailTable string, kind domain.EventKind, userID snowflake.ID, from *time.Time) ([]domain.PendingEvent, error) {
	stmt := db.WithContext(ctx).
		Table(detailTable+" AS d").
		Select("d.event_id AS event_id, e.event_time AS event_time").
		Joins("JOIN audit_events e ON e.id = d.event_id").
		Where("e.user_id = ?", userID)
	if from != nil {
		stmt = stmt.Where("e.event_time > ?", *from)
	}

	excluded := db.Model(&domain.SurveyResponse{}).
		Select("related_event_id").
		Where("related_event_id IS NOT NULL AND user_id = ?", userID)
	if from != nil {
		excluded = excluded.Where("requested > ?", *from)
	}
	stmt = stmt.Where("d.event_id NOT IN (?)", excluded)

	var events []domain.PendingEvent
	if err := stmt.Order("e.event_time ASC, e.id ASC").Scan(&events).Error; err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Kind = kind
	}
	return events, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, response *domain.SurveyResponse) error {
	return db.WithContext(ctx).Create(response).Error
}

func (r *repo) FindByEvent(ctx context.Context, db *gorm.DB, eventID uuid.UUID) (*domain.SurveyResponse, error) {
	var response domain.SurveyResponse
	err := db.WithContext(ctx).
		Where("related_event_id = ?", eventID).
		First(&response).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, response *domain.SurveyResponse) error {
	return db.WithContext(ctx).Save(response).Error
}
