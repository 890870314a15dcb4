package usagereport

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/bulkstore"
	"github.com/officepulse/officepulse/internal/clock"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/usagereport/domain"
	"go.uber.org/zap"
)

// Workload names; also the metric label values.
const (
	WorkloadTeams      = "Teams"
	WorkloadOutlook    = "Outlook"
	WorkloadOneDrive   = "OneDrive"
	WorkloadSharePoint = "SharePoint"
)

// LoaderDeps is everything a workload loader needs at construction. One
// registry call builds the whole fixed workload set; adding a workload means
// adding one entry here with its endpoint, row mapping and staging target.
type LoaderDeps struct {
	Cfg      config.Config
	Settings config.ImportSettings
	Source   PageSource
	Clock    clock.Clock
	Log      *zap.Logger
	GenID    *snowflake.Node
}

// BuildLoaders returns one loader per workload.
func BuildLoaders(d LoaderDeps) []WorkloadLoader {
	base := d.Cfg.Graph.BaseURL + "/reports/"

	teams := NewLoader(LoaderConfig[domain.TeamsActivityRecord, domain.TeamsActivityStagingRow]{
		Name:      WorkloadTeams,
		ReportURL: base + "getTeamsUserActivityUserDetail",
		Source:    d.Source,
		Clock:     d.Clock,
		Log:       d.Log,
		GenID:     d.GenID,
		Batch: bulkstore.NewBatch[domain.TeamsActivityStagingRow](
			d.Cfg.StagingTableName("activity_teams"), domain.TeamsMergeSQL, d.Settings.StageBatch, d.Log),
		MapRow: func(rec domain.TeamsActivityRecord, id, userID snowflake.ID, date time.Time) domain.TeamsActivityStagingRow {
			return domain.TeamsActivityStagingRow{
				ID:                         id,
				UserID:                     userID,
				Date:                       date,
				PrivateChatMessageCount:    rec.PrivateChatMessageCount,
				TeamChatMessageCount:       rec.TeamChatMessageCount,
				CallCount:                  rec.CallCount,
				MeetingCount:               rec.MeetingCount,
				MeetingsAttendedCount:      rec.MeetingsAttendedCount,
				MeetingsOrganizedCount:     rec.MeetingsOrganizedCount,
				AudioDurationSeconds:       domain.ParseISODurationSeconds(rec.AudioDuration),
				VideoDurationSeconds:       domain.ParseISODurationSeconds(rec.VideoDuration),
				ScreenShareDurationSeconds: domain.ParseISODurationSeconds(rec.ScreenShareDuration),
			}
		},
	})

	outlook := NewLoader(LoaderConfig[domain.OutlookActivityRecord, domain.OutlookActivityStagingRow]{
		Name:      WorkloadOutlook,
		ReportURL: base + "getEmailActivityUserDetail",
		Source:    d.Source,
		Clock:     d.Clock,
		Log:       d.Log,
		GenID:     d.GenID,
		Batch: bulkstore.NewBatch[domain.OutlookActivityStagingRow](
			d.Cfg.StagingTableName("activity_outlook"), domain.OutlookMergeSQL, d.Settings.StageBatch, d.Log),
		MapRow: func(rec domain.OutlookActivityRecord, id, userID snowflake.ID, date time.Time) domain.OutlookActivityStagingRow {
			return domain.OutlookActivityStagingRow{
				ID:                id,
				UserID:            userID,
				Date:              date,
				ReadCount:         rec.ReadCount,
				ReceiveCount:      rec.ReceiveCount,
				SendCount:         rec.SendCount,
				MeetingCreated:    rec.MeetingCreated,
				MeetingInteracted: rec.MeetingInteracted,
			}
		},
	})

	oneDrive := NewLoader(LoaderConfig[domain.OneDriveActivityRecord, domain.OneDriveActivityStagingRow]{
		Name:      WorkloadOneDrive,
		ReportURL: base + "getOneDriveActivityUserDetail",
		Source:    d.Source,
		Clock:     d.Clock,
		Log:       d.Log,
		GenID:     d.GenID,
		Batch: bulkstore.NewBatch[domain.OneDriveActivityStagingRow](
			d.Cfg.StagingTableName("activity_onedrive"), domain.OneDriveMergeSQL, d.Settings.StageBatch, d.Log),
		MapRow: func(rec domain.OneDriveActivityRecord, id, userID snowflake.ID, date time.Time) domain.OneDriveActivityStagingRow {
			return domain.OneDriveActivityStagingRow{
				ID:               id,
				UserID:           userID,
				Date:             date,
				SharedInternally: rec.SharedInternally,
				SharedExternally: rec.SharedExternally,
				Synced:           rec.Synced,
				ViewedOrEdited:   rec.ViewedOrEdited,
			}
		},
	})

	sharePoint := NewLoader(LoaderConfig[domain.SharePointActivityRecord, domain.SharePointActivityStagingRow]{
		Name:      WorkloadSharePoint,
		ReportURL: base + "getSharePointActivityUserDetail",
		Source:    d.Source,
		Clock:     d.Clock,
		Log:       d.Log,
		GenID:     d.GenID,
		Batch: bulkstore.NewBatch[domain.SharePointActivityStagingRow](
			d.Cfg.StagingTableName("activity_sharepoint"), domain.SharePointMergeSQL, d.Settings.StageBatch, d.Log),
		MapRow: func(rec domain.SharePointActivityRecord, id, userID snowflake.ID, date time.Time) domain.SharePointActivityStagingRow {
			return domain.SharePointActivityStagingRow{
				ID:               id,
				UserID:           userID,
				Date:             date,
				SharedInternally: rec.SharedInternally,
				SharedExternally: rec.SharedExternally,
				Synced:           rec.Synced,
				ViewedOrEdited:   rec.ViewedOrEdited,
			}
		},
	})

	return []WorkloadLoader{teams, outlook, oneDrive, sharePoint}
}
