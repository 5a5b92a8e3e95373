package invite

import (
	"context"
	"errors"
	"testing"

	"discord-antispam-bot/internal/engine/acl/acltest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragments(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", "hello there", nil},
		{"single", "join discord.gg/abc-123 now", []string{"abc-123"}},
		{"case insensitive", "DISCORD.GG/CoolServer", []string{"CoolServer"}},
		{"ordered", "discord.gg/first and https://discord.gg/second", []string{"first", "second"}},
		{"long form", "https://discord.com/invite/xyz and discordapp.com/invite/old", []string{"xyz", "old"}},
		{"stops at punctuation", "discord.gg/abc_def", []string{"abc"}},
		{"marker only", "discord.gg/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fragments(tt.content))
		})
	}
}

func TestResolver_Resolved(t *testing.T) {
	sess := acltest.NewSession()
	sess.Invites["abc"] = []byte(`{
		"code": "abc",
		"guild": {"id": "175928847299117063", "name": "Other Place", "icon": "a1b2"},
		"channel": {"id": "1", "name": "lounge", "type": 2},
		"approximate_member_count": 1500,
		"approximate_presence_count": 321
	}`)

	res, err := NewResolver(sess).Resolve(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "175928847299117063", res.GuildID)
	assert.Equal(t, "Other Place", res.GuildName)
	assert.Equal(t, "[VC] lounge", res.ChannelLabel())
	assert.True(t, res.HasCounts)
	assert.Equal(t, int64(1500), res.MemberCount)
	assert.Equal(t, int64(321), res.OnlineCount)
	assert.Equal(t, 2016, res.GuildCreatedAt.Year())
	assert.Contains(t, res.IconURL(), "175928847299117063/a1b2")
}

func TestResolver_NoCounts(t *testing.T) {
	sess := acltest.NewSession()
	sess.Invites["abc"] = []byte(`{"guild":{"id":"1","name":"x"},"channel":{"name":"rules","type":4}}`)

	res, err := NewResolver(sess).Resolve(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, res.HasCounts)
	assert.Equal(t, "[CAT] rules", res.ChannelLabel())
	assert.Equal(t, "", res.IconURL())
}

func TestResolver_NotFound(t *testing.T) {
	sess := acltest.NewSession()

	_, err := NewResolver(sess).Resolve(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestResolver_ServiceFailure(t *testing.T) {
	sess := acltest.NewSession()
	boom := errors.New("502 bad gateway")
	sess.InviteErrs["abc"] = boom

	_, err := NewResolver(sess).Resolve(context.Background(), "abc")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidInvite)
}

func TestResolver_MalformedBody(t *testing.T) {
	sess := acltest.NewSession()
	sess.Invites["abc"] = []byte(`<html>`)

	_, err := NewResolver(sess).Resolve(context.Background(), "abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInvite)
}

func TestResolution_ChannelLabelText(t *testing.T) {
	r := &Resolution{ChannelName: "general", ChannelType: discordgo.ChannelTypeGuildText}
	assert.Equal(t, "#general", r.ChannelLabel())
}
