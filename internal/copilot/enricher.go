package copilot

import (
	"context"
	"errors"
	"fmt"

	auditdomain "github.com/officepulse/officepulse/internal/audit/domain"
	"github.com/officepulse/officepulse/internal/bulkstore"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/obsmetrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventData is the copilot payload of one audit event.
type EventData struct {
	AppHost  string    `json:"AppHost"`
	Contexts []Context `json:"Contexts"`
}

// Context references the document or meeting the interaction happened in.
type Context struct {
	ID   string `json:"ID"`
	Type string `json:"Type"`
}

// Enricher resolves context metadata per event and buffers typed detail rows
// alongside the base events. Nothing is written until CommitAllChanges.
// Scoped to one ingest batch; Add is not concurrency-safe.
type Enricher struct {
	log     *zap.Logger
	loader  MetadataLoader
	allow   func(url string) bool
	metrics *obsmetrics.Metrics

	events   *bulkstore.Batch[auditdomain.AuditEventStagingRow]
	files    *bulkstore.Batch[auditdomain.FileDetailStagingRow]
	meetings *bulkstore.Batch[auditdomain.MeetingDetailStagingRow]
}

// NewEnricher builds a batch-scoped enricher. allow filters document context
// URLs against the org allow-list; nil admits everything.
func NewEnricher(cfg config.Config, settings config.ImportSettings, loader MetadataLoader, allow func(url string) bool, log *zap.Logger) *Enricher {
	l := log.Named("copilot.enricher")
	return &Enricher{
		log:     l,
		loader:  loader,
		allow:   allow,
		metrics: obsmetrics.Default(),
		events: bulkstore.NewBatch[auditdomain.AuditEventStagingRow](
			cfg.StagingTableName("audit_events"), auditdomain.AuditEventMergeSQL, settings.StageBatch, l),
		files: bulkstore.NewBatch[auditdomain.FileDetailStagingRow](
			cfg.StagingTableName("copilot_files"), auditdomain.FileDetailMergeSQL, settings.StageBatch, l),
		meetings: bulkstore.NewBatch[auditdomain.MeetingDetailStagingRow](
			cfg.StagingTableName("copilot_meetings"), auditdomain.MeetingDetailMergeSQL, settings.StageBatch, l),
	}
}

// EnrichAndStage buffers the base event plus one detail row per resolvable
// context. A context whose metadata lookup misses is logged and skipped; a
// malformed context id yields a per-context error. Sibling contexts always
// keep processing; the joined error reports every failed context.
func (e *Enricher) EnrichAndStage(ctx context.Context, data EventData, base auditdomain.AuditEvent, eventUPN string) error {
	e.events.Add(auditdomain.AuditEventStagingRow{
		ID:        base.ID,
		EventTime: base.EventTime,
		Operation: base.Operation,
		UserID:    base.UserID,
		Raw:       base.Raw,
	})

	var errs []error
	filesStaged, meetingsStaged := 0, 0
	for _, c := range data.Contexts {
		if c.Type == ContextTypeTeamsMeeting {
			staged, err := e.stageMeeting(ctx, c, data.AppHost, base, eventUPN)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if staged {
				meetingsStaged++
			}
			continue
		}

		staged, err := e.stageFile(ctx, c, data.AppHost, base, eventUPN)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if staged {
			filesStaged++
		}
	}

	if filesStaged > 0 || meetingsStaged > 0 {
		e.metrics.AddAuditEvents("enriched", 1)
	} else {
		// AppChat and similar context-free hosts end up here.
		e.metrics.AddAuditEvents("unenriched", 1)
		e.log.Debug("no detail rows for event",
			zap.String("event_id", base.ID.String()), zap.String("app_host", data.AppHost))
	}
	return errors.Join(errs...)
}

func (e *Enricher) stageMeeting(ctx context.Context, c Context, appHost string, base auditdomain.AuditEvent, eventUPN string) (bool, error) {
	userGuid, err := e.loader.GetUserIDFromUpn(ctx, eventUPN)
	if err != nil {
		return false, fmt.Errorf("event %s: resolve user %s: %w", base.ID, eventUPN, err)
	}
	meetingID, err := OnlineMeetingID(c.ID, userGuid)
	if err != nil {
		return false, fmt.Errorf("event %s: %w", base.ID, err)
	}
	info, err := e.loader.GetMeetingInfo(ctx, meetingID, userGuid)
	if err != nil {
		return false, fmt.Errorf("event %s: meeting metadata: %w", base.ID, err)
	}
	if info == nil {
		e.log.Warn("no meeting info for context",
			zap.String("event_id", base.ID.String()), zap.String("context_id", c.ID))
		return false, nil
	}

	e.meetings.Add(auditdomain.MeetingDetailStagingRow{
		EventID:        base.ID,
		AppHost:        appHost,
		MeetingID:      meetingID,
		MeetingName:    info.Subject,
		MeetingCreated: info.Created,
	})
	return true, nil
}

func (e *Enricher) stageFile(ctx context.Context, c Context, appHost string, base auditdomain.AuditEvent, eventUPN string) (bool, error) {
	if e.allow != nil && !e.allow(c.ID) {
		e.log.Debug("file context outside org urls",
			zap.String("event_id", base.ID.String()), zap.String("context_id", c.ID))
		return false, nil
	}
	info, err := e.loader.GetFileInfo(ctx, c.ID, eventUPN)
	if err != nil {
		return false, fmt.Errorf("event %s: file metadata for %q: %w", base.ID, c.ID, err)
	}
	if info == nil {
		e.log.Warn("no file info for context",
			zap.String("event_id", base.ID.String()), zap.String("context_id", c.ID))
		return false, nil
	}

	e.files.Add(auditdomain.FileDetailStagingRow{
		EventID:       base.ID,
		AppHost:       appHost,
		FileName:      info.Name,
		FileExtension: info.Extension,
		URL:           info.URL,
		SiteURL:       info.SiteURL,
	})
	return true, nil
}

// CommitAllChanges flushes events first so detail rows never reference a
// missing event, then both detail batches.
func (e *Enricher) CommitAllChanges(ctx context.Context, db *gorm.DB) error {
	if err := e.events.CommitAll(ctx, db); err != nil {
		return fmt.Errorf("commit audit events: %w", err)
	}
	if err := e.files.CommitAll(ctx, db); err != nil {
		return fmt.Errorf("commit file details: %w", err)
	}
	if err := e.meetings.CommitAll(ctx, db); err != nil {
		return fmt.Errorf("commit meeting details: %w", err)
	}
	return nil
}
