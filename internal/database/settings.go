package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"discord-antispam-bot/internal/models"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
)

// GetAntiSpamSettings loads a guild's settings. A guild without a row gets
// the defaults.
func (d *Database) GetAntiSpamSettings(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	var (
		soft, hard        sql.NullInt64
		allowed           []string
		cooldowns, chanJS []byte
		updatedAt         int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT ping_soft_limit, ping_hard_limit, allowed_invites, cooldowns, special_channels, updated_at
		FROM antispam_settings
		WHERE guild_id = $1
	`, guildID).Scan(&soft, &hard, pq.Array(&allowed), &cooldowns, &chanJS, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultGuildSettings(guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query antispam settings for %s: %w", guildID, err)
	}

	return decodeSettings(guildID, soft, hard, allowed, cooldowns, chanJS, updatedAt)
}

// SaveAntiSpamSettings upserts a guild's settings
func (d *Database) SaveAntiSpamSettings(ctx context.Context, s *models.GuildSettings) error {
	cooldowns, err := json.Marshal(s.AntiSpam.Cooldowns)
	if err != nil {
		return fmt.Errorf("encode cooldowns: %w", err)
	}
	channels, err := json.Marshal(nonNilChannels(s.SpecialChannels))
	if err != nil {
		return fmt.Errorf("encode special channels: %w", err)
	}
	allowed := s.AntiSpam.AllowedInvites
	if allowed == nil {
		allowed = []string{}
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO antispam_settings
			(guild_id, ping_soft_limit, ping_hard_limit, allowed_invites, cooldowns, special_channels, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(guild_id) DO UPDATE SET
			ping_soft_limit = EXCLUDED.ping_soft_limit,
			ping_hard_limit = EXCLUDED.ping_hard_limit,
			allowed_invites = EXCLUDED.allowed_invites,
			cooldowns = EXCLUDED.cooldowns,
			special_channels = EXCLUDED.special_channels,
			updated_at = EXCLUDED.updated_at
	`, s.GuildID, nullLimit(s.AntiSpam.PingSoftLimit), nullLimit(s.AntiSpam.PingHardLimit),
		pq.Array(allowed), cooldowns, channels, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save antispam settings for %s: %w", s.GuildID, err)
	}
	return nil
}

func decodeSettings(guildID string, soft, hard sql.NullInt64, allowed []string, cooldowns, channels []byte, updatedAt int64) (*models.GuildSettings, error) {
	s := models.DefaultGuildSettings(guildID)
	s.AntiSpam.PingSoftLimit = limitPtr(soft)
	s.AntiSpam.PingHardLimit = limitPtr(hard)
	s.AntiSpam.AllowedInvites = allowed
	s.UpdatedAt = updatedAt

	if len(cooldowns) > 0 {
		if err := json.Unmarshal(cooldowns, &s.AntiSpam.Cooldowns); err != nil {
			return nil, fmt.Errorf("decode cooldowns for %s: %w", guildID, err)
		}
	}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &s.SpecialChannels); err != nil {
			return nil, fmt.Errorf("decode special channels for %s: %w", guildID, err)
		}
	}
	return s, nil
}

func nullLimit(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func limitPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nonNilChannels(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
