package bot

import (
	"context"
	"fmt"

	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	surveydomain "github.com/officepulse/officepulse/internal/survey/domain"
	"go.uber.org/zap"
)

// ConversationResumer reopens the bot conversation with a user so the survey
// dialogue can run. Implemented by the bot service host.
type ConversationResumer interface {
	ResumeConversation(ctx context.Context, upn string) error
}

// CachedResumer is the default resumer: it only verifies a conversation
// reference exists. The bot service host replaces it with a Bot Framework
// backed implementation.
type CachedResumer struct {
	cache *ConversationCache
	log   *zap.Logger
}

func NewCachedResumer(cache *ConversationCache, log *zap.Logger) *CachedResumer {
	return &CachedResumer{cache: cache, log: log.Named("bot.resumer")}
}

func (r *CachedResumer) ResumeConversation(ctx context.Context, upn string) error {
	ref, err := r.cache.Get(ctx, upn)
	if err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("no bot conversation for %s; app not installed", upn)
	}
	r.log.Info("conversation resumed", zap.String("upn", upn), zap.String("conversation_id", ref.ConversationID))
	return nil
}

// SurveyProcessor sends survey prompts by resuming each user's conversation.
// It satisfies the survey engine's Processor boundary.
type SurveyProcessor struct {
	resumer ConversationResumer
	log     *zap.Logger
}

func NewSurveyProcessor(resumer ConversationResumer, log *zap.Logger) *SurveyProcessor {
	return &SurveyProcessor{resumer: resumer, log: log.Named("bot.processor")}
}

func (p *SurveyProcessor) ProcessSurveyRequest(ctx context.Context, user identitydomain.User, pending surveydomain.PendingActivities) error {
	p.log.Debug("requesting survey",
		zap.String("upn", user.UserPrincipalName),
		zap.Int("file_events", len(pending.FileEvents)),
		zap.Int("meeting_events", len(pending.MeetingEvents)))
	return p.resumer.ResumeConversation(ctx, user.UserPrincipalName)
}
