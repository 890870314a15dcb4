package copilot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	auditdomain "github.com/officepulse/officepulse/internal/audit/domain"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/identity"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"github.com/officepulse/officepulse/internal/orgurls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditItem is one copilot interaction record as delivered by the tenant's
// audit feed forwarder.
type AuditItem struct {
	ID           uuid.UUID         `json:"id"`
	CreationTime time.Time         `json:"creation_time"`
	Operation    string            `json:"operation"`
	UPN          string            `json:"upn"`
	AppHost      string            `json:"app_host"`
	Contexts     []Context         `json:"contexts"`
	Raw          datatypes.JSONMap `json:"raw,omitempty"`
}

// IngestStats summarizes one audit batch.
type IngestStats struct {
	Staged          int `json:"staged"`
	SkippedNoUser   int `json:"skipped_no_user"`
	ContextFailures int `json:"context_failures"`
}

type IngestorParams struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Settings *config.ImportSettingsHolder
	DB       *gorm.DB
	Loader   MetadataLoader
	Users    identitydomain.Repository
}

// Ingestor turns raw copilot audit records into enriched audit event rows.
// Each batch gets its own enricher and identity resolver.
type Ingestor struct {
	log      *zap.Logger
	cfg      config.Config
	settings *config.ImportSettingsHolder
	db       *gorm.DB
	loader   MetadataLoader
	users    identitydomain.Repository
}

func NewIngestor(p IngestorParams) *Ingestor {
	return &Ingestor{
		log:      p.Log.Named("copilot.ingestor"),
		cfg:      p.Cfg,
		settings: p.Settings,
		db:       p.DB,
		loader:   p.Loader,
		users:    p.Users,
	}
}

// IngestBatch stages and commits a batch of audit items. Records for unknown
// principals are skipped; a record's context failure does not abort the
// batch. The org-URL allow-list must be configured.
func (ing *Ingestor) IngestBatch(ctx context.Context, items []AuditItem) (IngestStats, error) {
	var stats IngestStats

	filter, err := orgurls.Load(ctx, ing.db)
	if err != nil {
		return stats, fmt.Errorf("load org url filter: %w", err)
	}

	enricher := NewEnricher(ing.cfg, ing.settings.Get(), ing.loader, filter.Matches, ing.log)
	resolver := identity.NewResolver(ing.db, ing.users)

	var errs []error
	for _, item := range items {
		if item.ID == uuid.Nil {
			errs = append(errs, errors.New("audit item without id"))
			continue
		}
		userID, found, err := resolver.GetOrResolve(ctx, item.UPN)
		if err != nil {
			return stats, fmt.Errorf("resolve %s: %w", item.UPN, err)
		}
		if !found {
			stats.SkippedNoUser++
			ing.log.Warn("audit event for unknown user", zap.String("upn", item.UPN), zap.String("event_id", item.ID.String()))
			continue
		}

		base := auditdomain.AuditEvent{
			ID:        item.ID,
			EventTime: item.CreationTime.UTC(),
			Operation: item.Operation,
			UserID:    userID,
			Raw:       item.Raw,
		}
		data := EventData{AppHost: item.AppHost, Contexts: item.Contexts}
		if err := enricher.EnrichAndStage(ctx, data, base, item.UPN); err != nil {
			stats.ContextFailures++
			errs = append(errs, err)
		}
		stats.Staged++
	}

	if err := enricher.CommitAllChanges(ctx, ing.db); err != nil {
		return stats, err
	}

	ing.log.Info("audit batch ingested",
		zap.Int("staged", stats.Staged),
		zap.Int("skipped_no_user", stats.SkippedNoUser),
		zap.Int("context_failures", stats.ContextFailures))
	return stats, errors.Join(errs...)
}
