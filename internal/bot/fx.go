package bot

import (
	surveydomain "github.com/officepulse/officepulse/internal/survey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("bot",
	fx.Provide(NewConversationCache),
	fx.Provide(NewInstaller),
	fx.Provide(func(cache *ConversationCache, log *zap.Logger) ConversationResumer {
		return NewCachedResumer(cache, log)
	}),
	fx.Provide(func(resumer ConversationResumer, log *zap.Logger) surveydomain.Processor {
		return NewSurveyProcessor(resumer, log)
	}),
)
