package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"discord-antispam-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	fetches int
	deletes []string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	c.fetches++
	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.data[key] = v
	return v, nil
}

func (c *mapCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, key)
	delete(c.data, key)
}

func TestMemory_DefaultsForUnknownGuild(t *testing.T) {
	s, err := NewMemory().Settings(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", s.GuildID)
	assert.Equal(t, models.DefaultPingWarnLimit, s.PingWarnLimit())
	assert.Equal(t, models.DefaultPingBanLimit, s.PingBanLimit())
	assert.Equal(t, models.InviteCooldown{Minutes: 30, BanLimit: 5}, s.InviteCooldown())
	assert.Equal(t, models.AttachCooldown{Seconds: 15, WarnLimit: 3, BanLimit: 5}, s.AttachCooldown())
	assert.True(t, s.InviteWhitelisted("g1"))
}

func TestManager_CachesAndInvalidates(t *testing.T) {
	c := newMapCache()
	m := NewManager(NewMemory(), c, nil)
	ctx := context.Background()

	_, err := m.Settings(ctx, "g1")
	require.NoError(t, err)
	_, err = m.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.fetches)

	_, err = m.SetPingLimits(ctx, "g1", 4, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"antispam:settings:g1"}, c.deletes)

	s, err := m.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, s.PingWarnLimit())
	assert.Equal(t, 10, s.PingBanLimit())
	assert.Equal(t, 2, c.fetches)
}

func TestManager_SetPingLimitsDisables(t *testing.T) {
	m := NewManager(NewMemory(), nil, nil)
	s, err := m.SetPingLimits(context.Background(), "g1", 0, -3)
	require.NoError(t, err)
	assert.Zero(t, s.PingWarnLimit())
	assert.Zero(t, s.PingBanLimit())
}

func TestManager_Whitelist(t *testing.T) {
	store := NewMemory()
	m := NewManager(store, nil, nil)
	ctx := context.Background()

	_, err := m.AllowInvite(ctx, "g1", "555")
	require.NoError(t, err)
	_, err = m.AllowInvite(ctx, "g1", "777")
	require.NoError(t, err)

	_, err = m.AllowInvite(ctx, "g1", "555")
	assert.ErrorIs(t, err, ErrAlreadyWhitelisted)
	_, err = m.AllowInvite(ctx, "g1", "g1")
	assert.ErrorIs(t, err, ErrAlreadyWhitelisted)

	s, err := m.BlockInvite(ctx, "g1", "555")
	require.NoError(t, err)
	assert.Equal(t, []string{"777"}, s.AntiSpam.AllowedInvites)

	_, err = m.BlockInvite(ctx, "g1", "555")
	assert.ErrorIs(t, err, ErrNotWhitelisted)
	_, err = m.BlockInvite(ctx, "g1", "g1")
	assert.ErrorIs(t, err, ErrHomeGuild)

	stored, err := store.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, stored.InviteWhitelisted("555"))
	assert.True(t, stored.InviteWhitelisted("777"))
}

func TestManager_FailedMutationIsNotSaved(t *testing.T) {
	store := NewMemory(&models.GuildSettings{GuildID: "g1"})
	c := newMapCache()
	m := NewManager(store, c, nil)

	_, err := m.BlockInvite(context.Background(), "g1", "999")
	assert.ErrorIs(t, err, ErrNotWhitelisted)
	assert.Empty(t, c.deletes)
}

func TestManager_Cooldowns(t *testing.T) {
	m := NewManager(NewMemory(), nil, nil)
	ctx := context.Background()

	s, err := m.SetInviteCooldown(ctx, "g1", 10, 3)
	require.NoError(t, err)
	assert.Equal(t, models.InviteCooldown{Minutes: 10, BanLimit: 3}, s.InviteCooldown())

	s, err = m.SetAttachmentCooldown(ctx, "g1", 20, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, models.AttachCooldown{Seconds: 20, WarnLimit: 0, BanLimit: 8}, s.AttachCooldown())

	// earlier mutation survives
	s, err = m.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.InviteCooldown().BanLimit)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	s, err := store.Settings(ctx, "g1")
	require.NoError(t, err)
	s.AntiSpam.AllowedInvites = append(s.AntiSpam.AllowedInvites, "555")

	fresh, err := store.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, fresh.InviteWhitelisted("555"))
}

type brokenStore struct{ *Memory }

func (brokenStore) GetAntiSpamSettings(context.Context, string) (*models.GuildSettings, error) {
	return nil, errors.New("connection reset")
}

func TestManager_Warm(t *testing.T) {
	c := newMapCache()
	m := NewManager(NewMemory(), c, nil)

	assert.Equal(t, 3, m.Warm(context.Background(), []string{"g1", "g2", "g3"}))
	assert.Equal(t, 3, c.fetches)

	_, err := m.Settings(context.Background(), "g2")
	require.NoError(t, err)
	assert.Equal(t, 3, c.fetches)
}

func TestManager_WarmSkipsFailures(t *testing.T) {
	m := NewManager(brokenStore{NewMemory()}, newMapCache(), nil)
	assert.Zero(t, m.Warm(context.Background(), []string{"g1", "g2"}))
}

func TestManager_WarmWithoutCache(t *testing.T) {
	m := NewManager(NewMemory(), nil, nil)
	assert.Zero(t, m.Warm(context.Background(), []string{"g1"}))
}

type slowStore struct{ *Memory }

func (s slowStore) GetAntiSpamSettings(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Memory.GetAntiSpamSettings(ctx, guildID)
}

func TestManager_ConcurrentAllowInviteKeepsEveryEntry(t *testing.T) {
	mem := NewMemory()
	m := NewManager(slowStore{mem}, newMapCache(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.AllowInvite(ctx, "g1", fmt.Sprintf("c%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s, err := mem.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, s.AntiSpam.AllowedInvites, 20)
}
