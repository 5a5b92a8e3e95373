package detector

import (
	"context"
	"fmt"
	"time"

	"discord-antispam-bot/internal/antispam/core"
	"discord-antispam-bot/internal/engine/acl"
	"discord-antispam-bot/internal/models"
	"discord-antispam-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Notices posted to the offending channel delete themselves after this long
const NoticeLifetime = 90 * time.Second

// Message is the part of an inbound message the detectors look at
type Message struct {
	GuildID        string
	ChannelID      string
	MessageID      string
	AuthorID       string
	AuthorName     string
	AuthorAvatar   string
	Content        string
	MentionCount   int
	HasAttachments bool
}

// FromEvent flattens a gateway message
func FromEvent(m *discordgo.MessageCreate) Message {
	msg := Message{
		GuildID:        m.GuildID,
		ChannelID:      m.ChannelID,
		MessageID:      m.ID,
		Content:        m.Content,
		MentionCount:   len(m.Mentions),
		HasAttachments: len(m.Attachments) > 0,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.String()
		msg.AuthorAvatar = m.Author.AvatarURL("")
	}
	return msg
}

func (m Message) author() utils.Author {
	return utils.Author{ID: m.AuthorID, Name: m.AuthorName, AvatarURL: m.AuthorAvatar}
}

// subjectKey scopes cooldown records to one member of one guild
func (m Message) subjectKey() string {
	return m.GuildID + ":" + m.AuthorID
}

// Detector inspects one message against one guild's settings
type Detector interface {
	Name() string
	Inspect(ctx context.Context, msg Message, settings *models.GuildSettings) error
}

// Permissions answers bypass checks; *acl.PermissionCache satisfies it
type Permissions interface {
	Has(ctx context.Context, channelID, userID string, perm int64) (bool, error)
}

// Deps are the collaborators shared by every detector
type Deps struct {
	Dispatcher  *acl.Dispatcher
	Permissions Permissions
	Log         *zap.Logger
	Clock       core.Clock
}

func (d Deps) logger(name string) *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log.Named(name)
}

// exempt reports whether the author holds the bypass permission in the channel
func exempt(ctx context.Context, perms Permissions, msg Message, perm int64) (bool, error) {
	ok, err := perms.Has(ctx, msg.ChannelID, msg.AuthorID, perm)
	if err != nil {
		return false, fmt.Errorf("bypass check for %s: %w", msg.AuthorID, err)
	}
	return ok, nil
}
