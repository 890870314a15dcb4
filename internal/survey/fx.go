package survey

import (
	"github.com/officepulse/officepulse/internal/survey/repository"
	"github.com/officepulse/officepulse/internal/survey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("survey",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
