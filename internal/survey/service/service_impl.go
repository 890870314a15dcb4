package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/officepulse/officepulse/internal/audit/domain"
	"github.com/officepulse/officepulse/internal/clock"
	"github.com/officepulse/officepulse/internal/config"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"github.com/officepulse/officepulse/internal/obsmetrics"
	"github.com/officepulse/officepulse/internal/survey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	DB        *gorm.DB
	Clock     clock.Clock
	GenID     *snowflake.Node
	Settings  *config.ImportSettingsHolder
	Repo      domain.Repository
	Users     identitydomain.Repository
	Audit     auditdomain.Repository
	Processor domain.Processor
}

type service struct {
	log       *zap.Logger
	db        *gorm.DB
	clock     clock.Clock
	genID     *snowflake.Node
	settings  *config.ImportSettingsHolder
	repo      domain.Repository
	users     identitydomain.Repository
	audit     auditdomain.Repository
	processor domain.Processor
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("survey.service"),
		db:        p.DB,
		clock:     p.Clock,
		genID:     p.GenID,
		settings:  p.Settings,
		repo:      p.Repo,
		users:     p.Users,
		audit:     p.Audit,
		processor: p.Processor,
		metrics:   obsmetrics.Default(),
	}
}

func (s *service) FindNewSurveyEvents(ctx context.Context, user identitydomain.User) (domain.PendingActivities, error) {
	from, err := s.repo.LastRespondedAt(ctx, s.db, user.ID)
	if err != nil {
		return domain.PendingActivities{}, fmt.Errorf("last responded survey for %s: %w", user.UserPrincipalName, err)
	}

	fileEvents, err := s.repo.UnsurveyedFileEvents(ctx, s.db, user.ID, from)
	if err != nil {
		return domain.PendingActivities{}, fmt.Errorf("file events for %s: %w", user.UserPrincipalName, err)
	}
	meetingEvents, err := s.repo.UnsurveyedMeetingEvents(ctx, s.db, user.ID, from)
	if err != nil {
		return domain.PendingActivities{}, fmt.Errorf("meeting events for %s: %w", user.UserPrincipalName, err)
	}

	return domain.PendingActivities{FileEvents: fileEvents, MeetingEvents: meetingEvents}, nil
}

func (s *service) LogSurveyRequested(ctx context.Context, event domain.PendingEvent, userID snowflake.ID) error {
	eventID := event.EventID
	return s.repo.Insert(ctx, s.db, &domain.SurveyResponse{
		ID:             s.genID.Generate(),
		UserID:         userID,
		RelatedEventID: &eventID,
		Requested:      s.clock.Now(),
	})
}

func (s *service) UpdateSurveyResult(ctx context.Context, eventID uuid.UUID, score int) error {
	response, err := s.repo.FindByEvent(ctx, s.db, eventID)
	if err != nil {
		return fmt.Errorf("find survey response for event %s: %w", eventID, err)
	}
	if response == nil {
		s.log.Warn("no survey response for event", zap.String("event_id", eventID.String()))
		return nil
	}
	if response.Responded != nil {
		s.log.Warn("survey response already recorded", zap.String("event_id", eventID.String()))
		return nil
	}

	now := s.clock.Now()
	response.Responded = &now
	response.Rating = &score
	if err := s.repo.Save(ctx, s.db, response); err != nil {
		return fmt.Errorf("save survey response for event %s: %w", eventID, err)
	}
	s.metrics.IncSurveyResponse("bot")
	return nil
}

func (s *service) LogDisconnectedSurveyResult(ctx context.Context, score int, upn string) (snowflake.ID, error) {
	user, err := s.users.FindByUPN(ctx, s.db, upn)
	if err != nil {
		return 0, fmt.Errorf("find user %s: %w", upn, err)
	}
	if user == nil {
		user = &identitydomain.User{
			ID:                s.genID.Generate(),
			UserPrincipalName: upn,
			CreatedAt:         s.clock.Now(),
			UpdatedAt:         s.clock.Now(),
		}
		if err := s.users.Save(ctx, s.db, user); err != nil {
			return 0, fmt.Errorf("create user %s: %w", upn, err)
		}
	}

	now := s.clock.Now()
	response := &domain.SurveyResponse{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		Requested: now,
		Responded: &now,
		Rating:    &score,
	}
	if err := s.repo.Insert(ctx, s.db, response); err != nil {
		return 0, fmt.Errorf("log disconnected survey for %s: %w", upn, err)
	}
	s.metrics.IncSurveyResponse("disconnected")
	return response.ID, nil
}

func (s *service) StopBotheringUser(ctx context.Context, upn string, until time.Time) error {
	user, err := s.users.FindByUPN(ctx, s.db, upn)
	if err != nil {
		return fmt.Errorf("find user %s: %w", upn, err)
	}
	if user == nil {
		s.log.Warn("stop-bothering request for unknown user", zap.String("upn", upn))
		return domain.ErrUserNotFound
	}

	s.log.Info("user asked to not be surveyed",
		zap.String("upn", upn), zap.Time("until", until))
	user.MessageNotBefore = &until
	return s.users.Save(ctx, s.db, user)
}

func (s *service) UsersWithActivity(ctx context.Context) ([]identitydomain.User, error) {
	ids, err := s.audit.UserIDsWithActivity(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("users with activity: %w", err)
	}
	return s.users.FindByIDs(ctx, s.db, ids)
}

// ProcessAllUsers runs one survey batch: every user with copilot activity,
// minus do-not-disturb users, gets at most one survey request, capped at the
// configured per-run maximum. A user's processing failure is logged and does
// not stop the batch.
func (s *service) ProcessAllUsers(ctx context.Context) (int, error) {
	users, err := s.UsersWithActivity(ctx)
	if err != nil {
		return 0, err
	}

	maxPerRun := s.settings.Get().SurveysPerRun
	now := s.clock.Now()
	sent := 0
	for _, user := range users {
		if maxPerRun > 0 && sent >= maxPerRun {
			s.log.Info("per-run survey cap reached", zap.Int("cap", maxPerRun))
			break
		}
		if user.MessageNotBefore != nil && now.Before(*user.MessageNotBefore) {
			s.log.Debug("skipping do-not-disturb user", zap.String("upn", user.UserPrincipalName))
			continue
		}

		pending, err := s.FindNewSurveyEvents(ctx, user)
		if err != nil {
			return sent, err
		}
		next := pending.GetNext()
		if next == nil {
			continue
		}

		if err := s.processor.ProcessSurveyRequest(ctx, user, pending); err != nil {
			s.log.Error("survey send failed",
				zap.String("upn", user.UserPrincipalName), zap.Error(err))
			continue
		}
		if err := s.LogSurveyRequested(ctx, *next, user.ID); err != nil {
			return sent, err
		}
		s.metrics.IncSurveySent()
		sent++
	}

	s.log.Info("survey batch finished", zap.Int("users", len(users)), zap.Int("sent", sent))
	return sent, nil
}
