package detector

import (
	"context"
	"errors"

	"discord-antispam-bot/internal/engine/acl"
	"discord-antispam-bot/internal/models"
	"discord-antispam-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const MentionDetector = "mention"

// MentionGuard acts on single messages that mention too many users.
// It keeps no state between messages.
type MentionGuard struct {
	dispatcher *acl.Dispatcher
	perms      Permissions
	log        *zap.Logger
}

func NewMentionGuard(deps Deps) *MentionGuard {
	return &MentionGuard{
		dispatcher: deps.Dispatcher,
		perms:      deps.Permissions,
		log:        deps.logger(MentionDetector),
	}
}

func (g *MentionGuard) Name() string { return MentionDetector }

// Inspect deletes and warns at the warn limit and bans at the ban limit.
// Both tiers are evaluated on the same message: a staff log channel does not
// cut the pass short.
func (g *MentionGuard) Inspect(ctx context.Context, msg Message, s *models.GuildSettings) error {
	warnLimit, banLimit := s.PingWarnLimit(), s.PingBanLimit()
	warn := warnLimit > 0 && msg.MentionCount >= warnLimit
	ban := banLimit > 0 && msg.MentionCount >= banLimit
	if !warn && !ban {
		return nil
	}

	if ok, err := exempt(ctx, g.perms, msg, discordgo.PermissionMentionEveryone); err != nil || ok {
		return err
	}

	var errs []error
	if warn {
		if err := g.dispatcher.DeleteMessage(ctx, MentionDetector, msg.ChannelID, msg.MessageID); err != nil {
			errs = append(errs, err)
		}
		if err := g.dispatcher.Notify(ctx, MentionDetector, msg.ChannelID, utils.MassPingBlockedEmbed(), 0); err != nil {
			errs = append(errs, err)
		}
		g.dispatcher.Alert(s.StaffAlerts(), utils.MassPingAlertEmbed(msg.author(), msg.MentionCount, msg.ChannelID))
	}

	if ban {
		g.log.Info("mass ping over ban limit",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.AuthorID),
			zap.Int("mentions", msg.MentionCount),
			zap.Int("ban_limit", banLimit))
		reason := utils.BanReason("Multi-pinged over guild ban limit.")
		if err := g.dispatcher.Ban(ctx, MentionDetector, msg.GuildID, msg.AuthorID, reason, 0); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
