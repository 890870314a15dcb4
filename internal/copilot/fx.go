package copilot

import (
	"github.com/officepulse/officepulse/internal/graph"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("copilot",
	fx.Provide(func(client *graph.Client, log *zap.Logger) MetadataLoader {
		return NewGraphLoader(client, log)
	}),
	fx.Provide(NewIngestor),
)
