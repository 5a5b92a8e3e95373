package acl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"discord-antispam-bot/internal/engine/acl/acltest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *acltest.Session, *Supervisor) {
	t.Helper()
	sess := acltest.NewSession()
	sup := NewSupervisor(nil, 2)
	t.Cleanup(sup.Close)
	return NewDispatcher(sess, sup, nil), sess, sup
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(acltest.NotFound()))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestDispatcher_DeleteToleratesMissingMessage(t *testing.T) {
	d, sess, _ := newTestDispatcher(t)
	sess.DeleteErr = func(channelID, messageID string) error { return acltest.NotFound() }

	err := d.DeleteMessage(context.Background(), "invites", "chan1", "msg1")
	assert.NoError(t, err)
	assert.Empty(t, sess.Deletions())
}

func TestDispatcher_DeleteSurfacesOtherErrors(t *testing.T) {
	d, sess, _ := newTestDispatcher(t)
	boom := errors.New("missing access")
	sess.DeleteErr = func(channelID, messageID string) error { return boom }

	err := d.DeleteMessage(context.Background(), "invites", "chan1", "msg1")
	assert.ErrorIs(t, err, boom)
}

func TestDispatcher_Ban(t *testing.T) {
	d, sess, _ := newTestDispatcher(t)

	require.NoError(t, d.Ban(context.Background(), "attachments", "guild1", "user1", "spam", 1))
	bans := sess.Bans()
	require.Len(t, bans, 1)
	assert.Equal(t, acltest.Ban{GuildID: "guild1", UserID: "user1", Reason: "spam", Days: 1}, bans[0])
}

func TestDispatcher_BanToleratesVanishedTarget(t *testing.T) {
	d, sess, _ := newTestDispatcher(t)
	sess.BanErr = func(guildID, userID string) error { return acltest.NotFound() }

	assert.NoError(t, d.Ban(context.Background(), "mentions", "guild1", "user1", "spam", 0))
}

func TestDispatcher_NotifySchedulesExpiry(t *testing.T) {
	d, sess, sup := newTestDispatcher(t)

	embed := &discordgo.MessageEmbed{Title: "notice"}
	require.NoError(t, d.Notify(context.Background(), "invites", "chan1", embed, 50*time.Millisecond))
	require.Len(t, sess.SentTo("chan1"), 1)
	assert.Equal(t, 1, sup.Scheduled())

	require.Eventually(t, func() bool {
		return len(sess.Deletions()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, sess.Sent()[0].MessageID, sess.Deletions()[0].MessageID)
}

func TestDispatcher_NotifyWithoutExpiry(t *testing.T) {
	d, sess, sup := newTestDispatcher(t)

	require.NoError(t, d.Notify(context.Background(), "mentions", "chan1", &discordgo.MessageEmbed{}, 0))
	assert.Len(t, sess.Sent(), 1)
	assert.Equal(t, 0, sup.Scheduled())
}

func TestDispatcher_AlertIsBackground(t *testing.T) {
	d, sess, sup := newTestDispatcher(t)
	sess.SendErr = func(channelID string) error {
		if channelID == "broken" {
			return errors.New("no access")
		}
		return nil
	}

	d.Alert("log", &discordgo.MessageEmbed{})
	d.Alert("broken", &discordgo.MessageEmbed{})
	d.Alert("", &discordgo.MessageEmbed{})
	sup.Wait()

	assert.Len(t, sess.SentTo("log"), 1)
	assert.Empty(t, sess.SentTo("broken"))
}

func TestDispatcher_UnknownAction(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	assert.Error(t, d.Issue(context.Background(), Action{Kind: "kick"}))
}

func TestSupervisor_RecoversPanics(t *testing.T) {
	sup := NewSupervisor(nil, 1)
	defer sup.Close()

	var ran atomic.Int32
	sup.Go("panics", func(ctx context.Context) error { panic("boom") })
	sup.Go("after", func(ctx context.Context) error { ran.Add(1); return nil })
	sup.Wait()

	assert.Equal(t, int32(1), ran.Load())
}

func TestSupervisor_CloseDropsPendingDelays(t *testing.T) {
	sup := NewSupervisor(nil, 1)

	var ran atomic.Int32
	sup.After(time.Hour, "late", func(ctx context.Context) error { ran.Add(1); return nil })
	assert.Equal(t, 1, sup.Scheduled())
	sup.Close()

	sup.Go("closed", func(ctx context.Context) error { ran.Add(1); return nil })
	assert.Equal(t, int32(0), ran.Load())
}

func TestPermissionCache_CachesLookups(t *testing.T) {
	sess := acltest.NewSession()
	sess.Perms["mod"] = discordgo.PermissionManageMessages | discordgo.PermissionSendMessages

	pc, err := NewPermissionCache(sess, time.Minute)
	require.NoError(t, err)
	defer pc.Close()

	ok, err := pc.Has(context.Background(), "chan1", "mod", discordgo.PermissionManageMessages)
	require.NoError(t, err)
	assert.True(t, ok)
	pc.l1.Wait()

	ok, err = pc.Has(context.Background(), "chan1", "mod", discordgo.PermissionManageMessages)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, sess.PermCalls)

	ok, err = pc.Has(context.Background(), "chan1", "member", discordgo.PermissionManageMessages)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCache_Error(t *testing.T) {
	sess := acltest.NewSession()
	sess.PermsErr = errors.New("unknown member")

	pc, err := NewPermissionCache(sess, 0)
	require.NoError(t, err)
	defer pc.Close()

	_, err = pc.Has(context.Background(), "chan1", "user1", discordgo.PermissionManageMessages)
	assert.Error(t, err)
}
