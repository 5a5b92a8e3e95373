// Package settings reads and mutates per-guild anti-spam configuration
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"discord-antispam-bot/internal/antispam/core"
	"discord-antispam-bot/internal/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	ErrAlreadyWhitelisted = errors.New("guild is already whitelisted")
	ErrNotWhitelisted     = errors.New("guild is not whitelisted")
	ErrHomeGuild          = errors.New("the home guild may not be removed from the whitelist")
)

// Provider returns the settings of one guild for a detection pass
type Provider interface {
	Settings(ctx context.Context, guildID string) (*models.GuildSettings, error)
}

// Store persists settings; *database.Database satisfies it
type Store interface {
	GetAntiSpamSettings(ctx context.Context, guildID string) (*models.GuildSettings, error)
	SaveAntiSpamSettings(ctx context.Context, s *models.GuildSettings) error
}

// Cache holds encoded settings; *cache.Cache satisfies it
type Cache interface {
	Get(ctx context.Context, key string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, key string)
}

// Memory is an in-process Store and Provider
type Memory struct {
	mu     sync.RWMutex
	guilds map[string]*models.GuildSettings
}

func NewMemory(guilds ...*models.GuildSettings) *Memory {
	m := &Memory{guilds: make(map[string]*models.GuildSettings)}
	for _, g := range guilds {
		m.guilds[g.GuildID] = g.Clone()
	}
	return m
}

func (m *Memory) GetAntiSpamSettings(_ context.Context, guildID string) (*models.GuildSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.guilds[guildID]; ok {
		return s.Clone(), nil
	}
	return models.DefaultGuildSettings(guildID), nil
}

func (m *Memory) SaveAntiSpamSettings(_ context.Context, s *models.GuildSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[s.GuildID] = s.Clone()
	return nil
}

func (m *Memory) Settings(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	return m.GetAntiSpamSettings(ctx, guildID)
}

// Manager serves settings through an optional cache and applies the
// administrative mutations. Every mutation writes through to the store and
// invalidates the cached copy. Mutations of one guild run one at a time.
type Manager struct {
	store Store
	cache Cache
	locks *core.SubjectLocks
	log   *zap.Logger
}

// NewManager creates a manager; cache may be nil
func NewManager(store Store, cache Cache, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, cache: cache, locks: core.NewSubjectLocks(), log: log}
}

func cacheKey(guildID string) string {
	return "antispam:settings:" + guildID
}

func (m *Manager) Settings(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	if m.cache == nil {
		return m.store.GetAntiSpamSettings(ctx, guildID)
	}

	raw, err := m.cache.Get(ctx, cacheKey(guildID), func(ctx context.Context) ([]byte, error) {
		s, err := m.store.GetAntiSpamSettings(ctx, guildID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(s)
	})
	if err != nil {
		return nil, fmt.Errorf("load settings for %s: %w", guildID, err)
	}

	var s models.GuildSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode cached settings for %s: %w", guildID, err)
	}
	return &s, nil
}

func (m *Manager) update(ctx context.Context, guildID string, fn func(s *models.GuildSettings) error) (*models.GuildSettings, error) {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	s, err := m.store.GetAntiSpamSettings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load settings for %s: %w", guildID, err)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := m.store.SaveAntiSpamSettings(ctx, s); err != nil {
		return nil, fmt.Errorf("save settings for %s: %w", guildID, err)
	}
	if m.cache != nil {
		m.cache.Delete(ctx, cacheKey(guildID))
	}
	return s, nil
}

func disableBelowOne(v int) *int {
	if v < 1 {
		v = 0
	}
	return &v
}

// SetPingLimits sets the mention warn and ban thresholds. A value below one
// disables that tier.
func (m *Manager) SetPingLimits(ctx context.Context, guildID string, warn, ban int) (*models.GuildSettings, error) {
	s, err := m.update(ctx, guildID, func(s *models.GuildSettings) error {
		s.AntiSpam.PingSoftLimit = disableBelowOne(warn)
		s.AntiSpam.PingHardLimit = disableBelowOne(ban)
		return nil
	})
	if err == nil {
		m.log.Info("ping limits updated", zap.String("guild_id", guildID), zap.Int("warn", warn), zap.Int("ban", ban))
	}
	return s, err
}

// AllowInvite adds a guild to the invite whitelist
func (m *Manager) AllowInvite(ctx context.Context, guildID, communityID string) (*models.GuildSettings, error) {
	s, err := m.update(ctx, guildID, func(s *models.GuildSettings) error {
		if s.InviteWhitelisted(communityID) {
			return fmt.Errorf("allow %s: %w", communityID, ErrAlreadyWhitelisted)
		}
		s.AntiSpam.AllowedInvites = append(s.AntiSpam.AllowedInvites, communityID)
		return nil
	})
	if err == nil {
		m.log.Info("invite whitelisted", zap.String("guild_id", guildID), zap.String("community_id", communityID))
	}
	return s, err
}

// BlockInvite removes a guild from the invite whitelist by value
func (m *Manager) BlockInvite(ctx context.Context, guildID, communityID string) (*models.GuildSettings, error) {
	s, err := m.update(ctx, guildID, func(s *models.GuildSettings) error {
		if communityID == guildID {
			return ErrHomeGuild
		}
		kept := s.AntiSpam.AllowedInvites[:0]
		for _, id := range s.AntiSpam.AllowedInvites {
			if id != communityID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(s.AntiSpam.AllowedInvites) {
			return fmt.Errorf("block %s: %w", communityID, ErrNotWhitelisted)
		}
		s.AntiSpam.AllowedInvites = kept
		return nil
	})
	if err == nil {
		m.log.Info("invite removed from whitelist", zap.String("guild_id", guildID), zap.String("community_id", communityID))
	}
	return s, err
}

// SetInviteCooldown sets the invite window in minutes and the ban threshold
func (m *Manager) SetInviteCooldown(ctx context.Context, guildID string, minutes, banLimit int) (*models.GuildSettings, error) {
	return m.update(ctx, guildID, func(s *models.GuildSettings) error {
		s.AntiSpam.Cooldowns.Invites = &models.InviteCooldown{Minutes: minutes, BanLimit: banLimit}
		return nil
	})
}

// SetAttachmentCooldown sets the attachment window in seconds and both thresholds
func (m *Manager) SetAttachmentCooldown(ctx context.Context, guildID string, seconds, warnLimit, banLimit int) (*models.GuildSettings, error) {
	return m.update(ctx, guildID, func(s *models.GuildSettings) error {
		s.AntiSpam.Cooldowns.Attach = &models.AttachCooldown{Seconds: seconds, WarnLimit: warnLimit, BanLimit: banLimit}
		return nil
	})
}
