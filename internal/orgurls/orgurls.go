// Package orgurls holds the allow-list of organization site URL prefixes.
// Only audit events whose file URL falls under one of these prefixes are
// imported; an empty list makes a run meaningless and aborts it.
package orgurls

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoneConfigured is fatal for an import run.
var ErrNoneConfigured = errors.New("no org URLs configured")

// OrgURLConfig is one allowed URL prefix row.
type OrgURLConfig struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	URLBase string       `gorm:"column:url_base;type:text;not null" json:"url_base"`
}

// TableName sets the database table name.
func (OrgURLConfig) TableName() string { return "org_urls" }

// FilterList is the loaded allow-list. Read-only after Load.
type FilterList struct {
	prefixes []string
}

// Load reads the configured URL prefixes once per import run.
func Load(ctx context.Context, db *gorm.DB) (FilterList, error) {
	var rows []OrgURLConfig
	if err := db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return FilterList{}, err
	}
	if len(rows) == 0 {
		return FilterList{}, ErrNoneConfigured
	}

	prefixes := make([]string, 0, len(rows))
	for _, row := range rows {
		base := strings.TrimSpace(row.URLBase)
		if base != "" {
			prefixes = append(prefixes, base)
		}
	}
	return FilterList{prefixes: prefixes}, nil
}

func (f FilterList) Matches(url string) bool {
	for _, p := range f.prefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

func (f FilterList) Len() int { return len(f.prefixes) }

func (f FilterList) Print(log *zap.Logger) {
	for _, p := range f.prefixes {
		log.Info("org url filter", zap.String("prefix", p))
	}
}
