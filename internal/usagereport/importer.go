package usagereport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/clock"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/graph"
	"github.com/officepulse/officepulse/internal/identity"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"github.com/officepulse/officepulse/internal/obsmetrics"
	"github.com/officepulse/officepulse/internal/orgurls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	skipReasonNoUser     = "no_user"
	skipReasonNoActivity = "no_activity"
)

// Stats aggregates one import run across all workloads.
type Stats struct {
	UsersSynced int
	PerWorkload map[string]SaveResult
}

func (s Stats) TotalPersisted() int {
	total := 0
	for _, r := range s.PerWorkload {
		total += r.Persisted
	}
	return total
}

type ImporterParams struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Settings *config.ImportSettingsHolder
	DB       *gorm.DB
	Client   *graph.Client
	Clock    clock.Clock
	GenID    *snowflake.Node
	Users    identitydomain.Repository
	Syncer   *identity.Syncer
}

// Importer drives one full usage-report import run.
type Importer struct {
	log      *zap.Logger
	cfg      config.Config
	settings *config.ImportSettingsHolder
	db       *gorm.DB
	client   *graph.Client
	clock    clock.Clock
	genID    *snowflake.Node
	users    identitydomain.Repository
	syncer   *identity.Syncer
	metrics  *obsmetrics.Metrics
}

func NewImporter(p ImporterParams) *Importer {
	return &Importer{
		log:      p.Log.Named("usagereport.importer"),
		cfg:      p.Cfg,
		settings: p.Settings,
		db:       p.DB,
		client:   p.Client,
		clock:    p.Clock,
		genID:    p.GenID,
		users:    p.Users,
		syncer:   p.Syncer,
		metrics:  obsmetrics.Default(),
	}
}

// RunImport executes one import run: token check, org-URL precondition,
// directory sync, then one fetch-and-persist task per workload. Workload
// failures are collected per name; siblings keep running.
func (im *Importer) RunImport(ctx context.Context, daysBackMax int) (Stats, error) {
	stats := Stats{PerWorkload: make(map[string]SaveResult)}

	if err := im.client.Authenticate(ctx); err != nil {
		im.metrics.IncImportRun("auth_failed")
		return stats, fmt.Errorf("graph authentication: %w", err)
	}

	filter, err := orgurls.Load(ctx, im.db)
	if err != nil {
		im.metrics.IncImportRun("config_error")
		if errors.Is(err, orgurls.ErrNoneConfigured) {
			return stats, fmt.Errorf("import aborted: %w", err)
		}
		return stats, fmt.Errorf("load org url filter: %w", err)
	}
	filter.Print(im.log)

	synced, err := im.syncer.Sync(ctx, im.db)
	if err != nil {
		im.metrics.IncImportRun("sync_failed")
		return stats, fmt.Errorf("sync directory users: %w", err)
	}
	stats.UsersSynced = synced

	loaders := BuildLoaders(LoaderDeps{
		Cfg:      im.cfg,
		Settings: im.settings.Get(),
		Source:   im.client,
		Clock:    im.clock,
		Log:      im.log,
		GenID:    im.genID,
	})

	resolver := identity.NewResolver(im.db, im.users)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, loader := range loaders {
		wg.Add(1)
		go func(l WorkloadLoader) {
			defer wg.Done()
			session := im.db.Session(&gorm.Session{NewDB: true})

			if err := l.PopulateFromGraph(ctx, daysBackMax); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("workload %s: %w", l.Name(), err))
				mu.Unlock()
				return
			}
			result, err := l.SaveToStore(ctx, session, resolver)
			mu.Lock()
			stats.PerWorkload[l.Name()] = result
			if err != nil {
				errs = append(errs, fmt.Errorf("workload %s: %w", l.Name(), err))
			}
			mu.Unlock()

			im.metrics.AddRecordsImported(l.Name(), result.Persisted)
			im.metrics.AddRecordsSkipped(l.Name(), skipReasonNoUser, result.SkippedNoUser)
			im.metrics.AddRecordsSkipped(l.Name(), skipReasonNoActivity, result.SkippedNoActivity)
		}(loader)
	}
	wg.Wait()

	im.warnIfAnonymized(loaders)

	im.log.Info("import run finished",
		zap.Int("users_synced", stats.UsersSynced),
		zap.Int("persisted", stats.TotalPersisted()),
		zap.Int("workload_errors", len(errs)))

	if len(errs) > 0 {
		im.metrics.IncImportRun("partial_failure")
		return stats, errors.Join(errs...)
	}
	im.metrics.IncImportRun("ok")
	return stats, nil
}

// warnIfAnonymized checks a sample UPN for email shape. Tenants with report
// pseudonymization enabled return hashed names, which makes user linkage
// impossible until the tenant setting is turned off.
func (im *Importer) warnIfAnonymized(loaders []WorkloadLoader) {
	for _, l := range loaders {
		upn, ok := l.SampleUPN()
		if !ok {
			continue
		}
		if !looksLikeEmail(upn) {
			im.log.Warn("usage reports look anonymized; enable identifiable report names in the tenant admin center",
				zap.String("sample", upn))
		}
		return
	}
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}
