package settings

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const warmConcurrency = 8

// Warm loads the settings of every listed guild into the cache so the first
// message of each guild does not wait on the database. Failures are logged
// and skipped; it returns how many guilds were loaded.
func (m *Manager) Warm(ctx context.Context, guildIDs []string) int {
	if m.cache == nil || len(guildIDs) == 0 {
		return 0
	}

	var warmed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, id := range guildIDs {
		id := id
		g.Go(func() error {
			if _, err := m.Settings(ctx, id); err != nil {
				m.log.Warn("settings warm-up failed", zap.String("guild_id", id), zap.Error(err))
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	m.log.Info("settings cache warmed", zap.Int64("guilds", warmed.Load()), zap.Int("requested", len(guildIDs)))
	return int(warmed.Load())
}
