package acl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dgraph-io/ristretto"
)

// PermissionSource computes a member's effective permissions in a channel
type PermissionSource interface {
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// PermissionCache answers bypass-permission checks with a short-lived L1 cache.
// The TTL is kept short so role changes take effect quickly.
type PermissionCache struct {
	source PermissionSource
	l1     *ristretto.Cache
	ttl    time.Duration
}

// NewPermissionCache creates the cache; ttl defaults to 2 minutes
func NewPermissionCache(source PermissionSource, ttl time.Duration) (*PermissionCache, error) {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100000,
		MaxCost:     10000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create permission cache: %w", err)
	}
	return &PermissionCache{source: source, l1: l1, ttl: ttl}, nil
}

func permissionKey(channelID, userID string) string {
	return channelID + ":" + userID
}

// Permissions returns the user's effective permission bits in the channel
func (p *PermissionCache) Permissions(ctx context.Context, channelID, userID string) (int64, error) {
	key := permissionKey(channelID, userID)
	if val, found := p.l1.Get(key); found {
		return val.(int64), nil
	}

	perms, err := p.source.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("permissions of %s in %s: %w", userID, channelID, err)
	}
	p.l1.SetWithTTL(key, perms, 1, p.ttl)
	return perms, nil
}

// Has reports whether the user holds every bit of perm in the channel
func (p *PermissionCache) Has(ctx context.Context, channelID, userID string, perm int64) (bool, error) {
	perms, err := p.Permissions(ctx, channelID, userID)
	if err != nil {
		return false, err
	}
	return perms&perm == perm, nil
}

// Close releases the cache
func (p *PermissionCache) Close() {
	p.l1.Close()
}
