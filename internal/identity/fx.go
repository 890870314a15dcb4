package identity

import (
	"github.com/officepulse/officepulse/internal/identity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(repository.Provide),
	fx.Provide(NewSyncer),
)
