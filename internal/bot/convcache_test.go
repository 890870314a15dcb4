package bot

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newCacheFixture(t *testing.T) (*ConversationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewConversationCache(client, zap.NewNop()), mr
}

func TestConversationCacheRoundTrip(t *testing.T) {
	cache, _ := newCacheFixture(t)
	ctx := context.Background()

	ref := ConversationReference{
		ConversationID: "conv-1",
		ServiceURL:     "https://smba.trafficmanager.net/emea/",
		TenantID:       "tenant-1",
		UserAadID:      "guid-amy",
	}
	if err := cache.AddOrUpdate(ctx, "amy@contoso.com", ref); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get(ctx, "amy@contoso.com")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a reference")
	}
	assert.Equal(t, ref, *got)

	ok, err := cache.ContainsUser(ctx, "amy@contoso.com")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestConversationCacheMissIsNil(t *testing.T) {
	cache, _ := newCacheFixture(t)

	got, err := cache.Get(context.Background(), "ghost@contoso.com")
	assert.NoError(t, err)
	assert.Nil(t, got)

	ok, err := cache.ContainsUser(context.Background(), "ghost@contoso.com")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestConversationCacheSurvivesRestart(t *testing.T) {
	cache, mr := newCacheFixture(t)
	ctx := context.Background()

	ref := ConversationReference{ConversationID: "conv-1", ServiceURL: "https://example.com/"}
	if err := cache.AddOrUpdate(ctx, "amy@contoso.com", ref); err != nil {
		t.Fatal(err)
	}

	// A fresh cache over the same redis sees the persisted reference.
	restarted := NewConversationCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	got, err := restarted.Get(ctx, "amy@contoso.com")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected the reference to survive a process restart")
	}
	assert.Equal(t, "conv-1", got.ConversationID)
}

func TestConversationCacheRemove(t *testing.T) {
	cache, mr := newCacheFixture(t)
	ctx := context.Background()

	if err := cache.AddOrUpdate(ctx, "amy@contoso.com", ConversationReference{ConversationID: "c"}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Remove(ctx, "amy@contoso.com"); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get(ctx, "amy@contoso.com")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(conversationsHashKey))
}

func TestConversationCacheUndecodableEntryDropped(t *testing.T) {
	cache, mr := newCacheFixture(t)
	mr.HSet(conversationsHashKey, "amy@contoso.com", "not json")

	got, err := cache.Get(context.Background(), "amy@contoso.com")
	assert.NoError(t, err)
	assert.Nil(t, got, "a corrupt entry reads as a miss, not an error")
}

func TestConversationCacheWorksWithoutRedis(t *testing.T) {
	cache := NewConversationCache(nil, zap.NewNop())
	ctx := context.Background()

	got, err := cache.Get(ctx, "amy@contoso.com")
	assert.NoError(t, err)
	assert.Nil(t, got)

	if err := cache.AddOrUpdate(ctx, "amy@contoso.com", ConversationReference{ConversationID: "c"}); err != nil {
		t.Fatal(err)
	}
	got, err = cache.Get(ctx, "amy@contoso.com")
	assert.NoError(t, err)
	if got == nil {
		t.Fatal("process-local map must still serve lookups")
	}
}
