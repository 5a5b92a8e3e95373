package database

import (
	"database/sql"
	"strings"
	"testing"

	"discord-antispam-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSettings(t *testing.T) {
	s, err := decodeSettings("g1",
		sql.NullInt64{Int64: 4, Valid: true},
		sql.NullInt64{},
		[]string{"555"},
		[]byte(`{"invites":{"minutes":10,"banLimit":3}}`),
		[]byte(`{"STAFF_LOG":"300"}`),
		1700000000,
	)
	require.NoError(t, err)

	assert.Equal(t, 4, s.PingWarnLimit())
	assert.Equal(t, models.DefaultPingBanLimit, s.PingBanLimit())
	assert.True(t, s.InviteWhitelisted("555"))
	assert.Equal(t, models.InviteCooldown{Minutes: 10, BanLimit: 3}, s.InviteCooldown())
	assert.Nil(t, s.AntiSpam.Cooldowns.Attach)
	assert.Equal(t, "300", s.StaffLog())
	assert.Equal(t, "300", s.StaffAlerts())
}

func TestDecodeSettings_EmptyJSON(t *testing.T) {
	s, err := decodeSettings("g1", sql.NullInt64{}, sql.NullInt64{}, nil, []byte(`{}`), []byte(`{}`), 0)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAttachBanLimit, s.AttachCooldown().BanLimit)
	assert.Empty(t, s.StaffLog())
}

func TestDecodeSettings_BadJSON(t *testing.T) {
	_, err := decodeSettings("g1", sql.NullInt64{}, sql.NullInt64{}, nil, []byte(`{`), nil, 0)
	assert.Error(t, err)
}

func TestNullLimitRoundTrip(t *testing.T) {
	assert.False(t, nullLimit(nil).Valid)
	assert.Nil(t, limitPtr(nullLimit(nil)))

	zero := 0
	got := limitPtr(nullLimit(&zero))
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)
}

func TestPostgresConfigDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", User: "bot", Database: "antispam"}.DSN()
	assert.True(t, strings.Contains(dsn, "port=5432"))
	assert.True(t, strings.Contains(dsn, "sslmode=disable"))
	assert.True(t, strings.Contains(dsn, "dbname=antispam"))
}
