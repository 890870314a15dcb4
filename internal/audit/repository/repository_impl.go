package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UserIDsWithActivity(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(`
		SELECT DISTINCT e.user_id
		FROM audit_events e
		WHERE EXISTS (SELECT 1 FROM copilot_file_details f WHERE f.event_id = e.id)
		   OR EXISTS (SELECT 1 FROM copilot_meeting_details m WHERE m.event_id = e.id)
		ORDER BY e.user_id ASC`).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
