package acl

import (
	"context"
	"fmt"
	"time"

	"discord-antispam-bot/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Session is the part of *discordgo.Session the dispatcher needs
type Session interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

// ActionKind is the kind of moderation action
type ActionKind string

const (
	ActionDelete ActionKind = "delete"
	ActionWarn   ActionKind = "warn"
	ActionBan    ActionKind = "ban"
)

// Action is a single moderation action against a subject
type Action struct {
	Kind      ActionKind
	Detector  string // metrics label
	GuildID   string
	SubjectID string
	ChannelID string
	MessageID string // Delete only
	Reason    string // Ban only, written to the audit log
	PurgeDays int    // Ban only, days of message history to delete

	Embed       *discordgo.MessageEmbed // Warn only
	DeleteAfter time.Duration           // Warn only, 0 keeps the notice
}

// Dispatcher issues delete/warn/ban actions against Discord.
// Targets that vanished before the action runs are tolerated.
type Dispatcher struct {
	session    Session
	supervisor *Supervisor
	log        *zap.Logger
}

// NewDispatcher creates a dispatcher; scheduled deletions and alerts run on the supervisor
func NewDispatcher(session Session, supervisor *Supervisor, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		session:    session,
		supervisor: supervisor,
		log:        log,
	}
}

// Issue performs the action
func (d *Dispatcher) Issue(ctx context.Context, a Action) error {
	var err error
	switch a.Kind {
	case ActionDelete:
		err = d.deleteMessage(ctx, a)
	case ActionWarn:
		err = d.warn(ctx, a)
	case ActionBan:
		err = d.ban(ctx, a)
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if err == nil {
		metrics.ActionsIssued.WithLabelValues(a.Detector, string(a.Kind)).Inc()
	}
	return err
}

// DeleteMessage removes a message, tolerating one that is already gone
func (d *Dispatcher) DeleteMessage(ctx context.Context, detector, channelID, messageID string) error {
	return d.Issue(ctx, Action{Kind: ActionDelete, Detector: detector, ChannelID: channelID, MessageID: messageID})
}

// Ban bans the subject with the given reason and history purge
func (d *Dispatcher) Ban(ctx context.Context, detector, guildID, subjectID, reason string, purgeDays int) error {
	return d.Issue(ctx, Action{
		Kind:      ActionBan,
		Detector:  detector,
		GuildID:   guildID,
		SubjectID: subjectID,
		Reason:    reason,
		PurgeDays: purgeDays,
	})
}

// Notify posts an embed to a channel, deleting it again after deleteAfter when non-zero
func (d *Dispatcher) Notify(ctx context.Context, detector, channelID string, embed *discordgo.MessageEmbed, deleteAfter time.Duration) error {
	return d.Issue(ctx, Action{
		Kind:        ActionWarn,
		Detector:    detector,
		ChannelID:   channelID,
		Embed:       embed,
		DeleteAfter: deleteAfter,
	})
}

// Alert posts an embed to a staff channel in the background
func (d *Dispatcher) Alert(channelID string, embed *discordgo.MessageEmbed) {
	if channelID == "" {
		return
	}
	d.supervisor.Go("alert", func(ctx context.Context) error {
		if _, err := d.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send alert to %s: %w", channelID, err)
		}
		return nil
	})
}

func (d *Dispatcher) deleteMessage(ctx context.Context, a Action) error {
	err := d.session.ChannelMessageDelete(a.ChannelID, a.MessageID, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		metrics.AlreadyDeleted.Inc()
		d.log.Warn("message was already deleted before it could be handled",
			zap.String("channel_id", a.ChannelID),
			zap.String("message_id", a.MessageID),
			zap.String("detector", a.Detector))
		return nil
	}
	return fmt.Errorf("delete message %s: %w", a.MessageID, err)
}

func (d *Dispatcher) warn(ctx context.Context, a Action) error {
	msg, err := d.session.ChannelMessageSendEmbed(a.ChannelID, a.Embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send notice to %s: %w", a.ChannelID, err)
	}
	if a.DeleteAfter > 0 && msg != nil {
		channelID, messageID := msg.ChannelID, msg.ID
		if channelID == "" {
			channelID = a.ChannelID
		}
		d.supervisor.After(a.DeleteAfter, "expire_notice", func(ctx context.Context) error {
			err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
			if err != nil && !IsNotFound(err) {
				return fmt.Errorf("expire notice %s: %w", messageID, err)
			}
			return nil
		})
	}
	return nil
}

func (d *Dispatcher) ban(ctx context.Context, a Action) error {
	err := d.session.GuildBanCreateWithReason(a.GuildID, a.SubjectID, a.Reason, a.PurgeDays, discordgo.WithContext(ctx))
	if err == nil {
		d.log.Info("subject banned",
			zap.String("guild_id", a.GuildID),
			zap.String("user_id", a.SubjectID),
			zap.String("detector", a.Detector),
			zap.String("reason", a.Reason))
		return nil
	}
	if IsNotFound(err) {
		metrics.AlreadyDeleted.Inc()
		d.log.Warn("ban target vanished before it could be banned",
			zap.String("guild_id", a.GuildID),
			zap.String("user_id", a.SubjectID))
		return nil
	}
	return fmt.Errorf("ban %s: %w", a.SubjectID, err)
}
