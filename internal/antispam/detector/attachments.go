package detector

import (
	"context"
	"fmt"

	"discord-antispam-bot/internal/antispam/core"
	"discord-antispam-bot/internal/engine/acl"
	"discord-antispam-bot/internal/models"
	"discord-antispam-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const AttachmentDetector = "attachments"

// AttachmentSpam counts consecutive attachment messages per member.
// Any plain message clears the count.
type AttachmentSpam struct {
	escalator  *core.Escalator
	dispatcher *acl.Dispatcher
	perms      Permissions
	log        *zap.Logger
}

func NewAttachmentSpam(deps Deps) *AttachmentSpam {
	return &AttachmentSpam{
		escalator:  core.NewEscalator(core.NewCooldownStore(core.KindAttachments, deps.Clock)),
		dispatcher: deps.Dispatcher,
		perms:      deps.Permissions,
		log:        deps.logger(AttachmentDetector),
	}
}

func (d *AttachmentSpam) Name() string { return AttachmentDetector }

// Store exposes the attachment cooldown records
func (d *AttachmentSpam) Store() *core.CooldownStore { return d.escalator.Store() }

func (d *AttachmentSpam) Inspect(ctx context.Context, msg Message, s *models.GuildSettings) error {
	if ok, err := exempt(ctx, d.perms, msg, discordgo.PermissionManageMessages); err != nil || ok {
		return err
	}

	if !msg.HasAttachments {
		if d.escalator.Reset(msg.subjectKey()) {
			d.log.Info("attachment cooldown reset by plain message",
				zap.String("guild_id", msg.GuildID),
				zap.String("user_id", msg.AuthorID))
		}
		return nil
	}

	cfg := s.AttachCooldown()
	policy := core.Policy{Window: s.AttachWindow(), WarnLimit: cfg.WarnLimit, BanLimit: cfg.BanLimit}
	author := msg.author()

	_, err := d.escalator.Escalate(ctx, msg.subjectKey(), policy, core.Hooks{
		OnWarn: func(ctx context.Context, st core.Strike) error {
			d.dispatcher.Alert(s.StaffAlerts(), utils.AttachmentAlertEmbed(author, st.Count, cfg.Seconds, msg.ChannelID))
			return d.dispatcher.Notify(ctx, AttachmentDetector, msg.ChannelID, utils.AttachmentWarningEmbed(author), NoticeLifetime)
		},
		OnBan: func(ctx context.Context, st core.Strike) error {
			reason := utils.BanReason(fmt.Sprintf("User sent %d attachments in a %d second period.",
				st.Count, cfg.Seconds))
			return d.dispatcher.Ban(ctx, AttachmentDetector, msg.GuildID, msg.AuthorID, reason, 1)
		},
	})
	return err
}
