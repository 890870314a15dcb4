// Package bot is the chat-bot boundary: the conversation reference cache,
// proactive app install, and the survey send processor. Dialogue handling
// lives in the bot service, not here.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const conversationsHashKey = "officepulse:bot:conversations"

// ConversationReference is what the bot needs to resume a proactive
// conversation with a user.
type ConversationReference struct {
	ConversationID string `json:"conversation_id"`
	ServiceURL     string `json:"service_url"`
	TenantID       string `json:"tenant_id"`
	UserAadID      string `json:"user_aad_id"`
}

// ConversationCache keeps conversation references per UPN in a process map
// backed by a redis hash, so references survive restarts and are shared
// between replicas.
type ConversationCache struct {
	client *redis.Client
	log    *zap.Logger
	local  sync.Map // upn -> ConversationReference
}

func NewConversationCache(client *redis.Client, log *zap.Logger) *ConversationCache {
	return &ConversationCache{
		client: client,
		log:    log.Named("bot.convcache"),
	}
}

// AddOrUpdate stores the reference for upn.
func (c *ConversationCache) AddOrUpdate(ctx context.Context, upn string, ref ConversationReference) error {
	c.local.Store(upn, ref)
	if c.client == nil {
		return nil
	}
	payload, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, conversationsHashKey, upn, payload).Err(); err != nil {
		return fmt.Errorf("persist conversation for %s: %w", upn, err)
	}
	return nil
}

// Get returns the reference for upn, (nil, nil) when the user has never
// talked to the bot.
func (c *ConversationCache) Get(ctx context.Context, upn string) (*ConversationReference, error) {
	if v, ok := c.local.Load(upn); ok {
		ref := v.(ConversationReference)
		return &ref, nil
	}
	if c.client == nil {
		return nil, nil
	}

	payload, err := c.client.HGet(ctx, conversationsHashKey, upn).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation for %s: %w", upn, err)
	}

	var ref ConversationReference
	if err := json.Unmarshal([]byte(payload), &ref); err != nil {
		c.log.Warn("dropping undecodable conversation reference", zap.String("upn", upn), zap.Error(err))
		return nil, nil
	}
	c.local.Store(upn, ref)
	return &ref, nil
}

// ContainsUser reports whether a reference exists for upn.
func (c *ConversationCache) ContainsUser(ctx context.Context, upn string) (bool, error) {
	ref, err := c.Get(ctx, upn)
	if err != nil {
		return false, err
	}
	return ref != nil, nil
}

// Remove drops the reference for upn.
func (c *ConversationCache) Remove(ctx context.Context, upn string) error {
	c.local.Delete(upn)
	if c.client == nil {
		return nil
	}
	return c.client.HDel(ctx, conversationsHashKey, upn).Err()
}
