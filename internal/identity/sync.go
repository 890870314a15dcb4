package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/graph"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type graphUser struct {
	ID                string `json:"id"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type SyncerParams struct {
	fx.In

	Log    *zap.Logger
	Client *graph.Client
	Users  identitydomain.Repository
	GenID  *snowflake.Node
}

// Syncer refreshes the users table from the directory before an import run so
// that report rows can be linked to user ids.
type Syncer struct {
	log    *zap.Logger
	client *graph.Client
	users  identitydomain.Repository
	genID  *snowflake.Node
}

func NewSyncer(p SyncerParams) *Syncer {
	return &Syncer{
		log:    p.Log.Named("identity.sync"),
		client: p.Client,
		users:  p.Users,
		genID:  p.GenID,
	}
}

// Sync pages the directory user list and upserts rows keyed by UPN. Returns
// the number of users seen.
func (s *Syncer) Sync(ctx context.Context, db *gorm.DB) (int, error) {
	url := s.client.BaseURL() + "/users?$select=id,userPrincipalName"
	items, err := s.client.GetPages(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("list directory users: %w", err)
	}

	seen := 0
	for _, raw := range items {
		var gu graphUser
		if err := json.Unmarshal(raw, &gu); err != nil {
			s.log.Warn("skipping undecodable directory user", zap.Error(err))
			continue
		}
		upn := strings.TrimSpace(gu.UserPrincipalName)
		if upn == "" {
			continue
		}
		now := time.Now().UTC()
		user := &identitydomain.User{
			ID:                s.genID.Generate(),
			UserPrincipalName: upn,
			AzureAdID:         gu.ID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.users.Upsert(ctx, db, user); err != nil {
			return seen, fmt.Errorf("upsert user %s: %w", upn, err)
		}
		seen++
	}

	s.log.Info("directory users synced", zap.Int("count", seen))
	return seen, nil
}
