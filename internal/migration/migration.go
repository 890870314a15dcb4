// Package migration creates the schema on startup, including the
// per-environment staging tables the bulk loaders write through.
package migration

import (
	auditdomain "github.com/officepulse/officepulse/internal/audit/domain"
	"github.com/officepulse/officepulse/internal/config"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"github.com/officepulse/officepulse/internal/orgurls"
	surveydomain "github.com/officepulse/officepulse/internal/survey/domain"
	usagedomain "github.com/officepulse/officepulse/internal/usagereport/domain"
	"gorm.io/gorm"
)

// Run migrates every permanent table, then the staging tables.
func Run(db *gorm.DB, cfg config.Config) error {
	if err := db.AutoMigrate(
		&identitydomain.User{},
		&orgurls.OrgURLConfig{},
		&usagedomain.TeamsUserActivityLog{},
		&usagedomain.OutlookUsageActivityLog{},
		&usagedomain.OneDriveUserActivityLog{},
		&usagedomain.SharePointUserActivityLog{},
		&auditdomain.AuditEvent{},
		&auditdomain.CopilotFileDetail{},
		&auditdomain.CopilotMeetingDetail{},
		&surveydomain.SurveyResponse{},
	); err != nil {
		return err
	}

	return RunStaging(db, cfg)
}

// RunStaging creates the staging tables for the current environment.
func RunStaging(db *gorm.DB, cfg config.Config) error {
	staging := []struct {
		target string
		model  any
	}{
		{"activity_teams", &usagedomain.TeamsActivityStagingRow{}},
		{"activity_outlook", &usagedomain.OutlookActivityStagingRow{}},
		{"activity_onedrive", &usagedomain.OneDriveActivityStagingRow{}},
		{"activity_sharepoint", &usagedomain.SharePointActivityStagingRow{}},
		{"audit_events", &auditdomain.AuditEventStagingRow{}},
		{"copilot_files", &auditdomain.FileDetailStagingRow{}},
		{"copilot_meetings", &auditdomain.MeetingDetailStagingRow{}},
	}
	for _, s := range staging {
		if err := db.Table(cfg.StagingTableName(s.target)).AutoMigrate(s.model); err != nil {
			return err
		}
	}
	return nil
}
