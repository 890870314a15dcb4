// Package server exposes the HTTP trigger surface: survey batch and bot
// install triggers, survey response write endpoints, health and metrics.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/officepulse/officepulse/internal/bot"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/copilot"
	surveydomain "github.com/officepulse/officepulse/internal/survey/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Survey    surveydomain.Service
	Installer *bot.Installer
	Ingestor  *copilot.Ingestor
}

type Server struct {
	cfg       config.Config
	log       *zap.Logger
	survey    surveydomain.Service
	installer *bot.Installer
	ingestor  *copilot.Ingestor
}

func NewServer(p ServerParams) *Server {
	return &Server{
		cfg:       p.Cfg,
		log:       p.Log.Named("server"),
		survey:    p.Survey,
		installer: p.Installer,
		ingestor:  p.Ingestor,
	}
}

func (s *Server) Engine() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		triggers := api.Group("/triggers")
		triggers.POST("/send-surveys", s.SendSurveys)
		triggers.POST("/install-bot", s.InstallBot)

		api.POST("/ingest/audit", s.IngestAudit)

		surveys := api.Group("/surveys")
		surveys.POST("/result", s.SurveyResult)
		surveys.POST("/disconnected", s.DisconnectedSurveyResult)
		surveys.POST("/stop", s.StopBothering)
	}
	return r
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(Run),
)

func Run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
