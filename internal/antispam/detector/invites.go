package detector

import (
	"context"
	"errors"
	"fmt"

	"discord-antispam-bot/internal/antispam/core"
	"discord-antispam-bot/internal/antispam/invite"
	"discord-antispam-bot/internal/engine/acl"
	"discord-antispam-bot/internal/models"
	"discord-antispam-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const InviteDetector = "invites"

// InviteResolver is satisfied by *invite.Resolver
type InviteResolver interface {
	Resolve(ctx context.Context, code string) (*invite.Resolution, error)
}

// InviteSpam removes invites to non-whitelisted guilds and bans repeat posters.
// Only the first invalid or unauthorized invite of a message is acted on.
type InviteSpam struct {
	escalator  *core.Escalator
	resolver   InviteResolver
	dispatcher *acl.Dispatcher
	perms      Permissions
	log        *zap.Logger
}

func NewInviteSpam(deps Deps, resolver InviteResolver) *InviteSpam {
	return &InviteSpam{
		escalator:  core.NewEscalator(core.NewCooldownStore(core.KindInvites, deps.Clock)),
		resolver:   resolver,
		dispatcher: deps.Dispatcher,
		perms:      deps.Permissions,
		log:        deps.logger(InviteDetector),
	}
}

func (d *InviteSpam) Name() string { return InviteDetector }

// Store exposes the invite cooldown records
func (d *InviteSpam) Store() *core.CooldownStore { return d.escalator.Store() }

func (d *InviteSpam) Inspect(ctx context.Context, msg Message, s *models.GuildSettings) error {
	codes := invite.Fragments(msg.Content)
	if len(codes) == 0 {
		return nil
	}

	if ok, err := exempt(ctx, d.perms, msg, discordgo.PermissionManageMessages); err != nil || ok {
		return err
	}

	for _, code := range codes {
		res, err := d.resolver.Resolve(ctx, code)
		switch {
		case errors.Is(err, invite.ErrInvalidInvite):
			return d.invalid(ctx, msg, s, code)
		case err != nil:
			// remaining fragments are abandoned with this message
			return fmt.Errorf("resolve invite %q: %w", code, err)
		}

		if s.InviteWhitelisted(res.GuildID) {
			continue
		}
		return d.unauthorized(ctx, msg, s, res)
	}
	return nil
}

func (d *InviteSpam) invalid(ctx context.Context, msg Message, s *models.GuildSettings, code string) error {
	if err := d.dispatcher.DeleteMessage(ctx, InviteDetector, msg.ChannelID, msg.MessageID); err != nil {
		return err
	}
	d.log.Info("invalid invite filtered",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.AuthorID),
		zap.String("code", code))
	d.dispatcher.Alert(s.StaffLog(), utils.InvalidInviteEmbed(msg.author(), code, msg.ChannelID))
	return nil
}

func (d *InviteSpam) unauthorized(ctx context.Context, msg Message, s *models.GuildSettings, res *invite.Resolution) error {
	// the offense counts even when the delete fails
	delErr := d.dispatcher.DeleteMessage(ctx, InviteDetector, msg.ChannelID, msg.MessageID)

	cfg := s.InviteCooldown()
	policy := core.Policy{Window: s.InviteWindow(), BanLimit: cfg.BanLimit}
	author := msg.author()

	strike, err := d.escalator.Escalate(ctx, msg.subjectKey(), policy, core.Hooks{
		OnFirst: func(ctx context.Context, _ core.Strike) error {
			return d.dispatcher.Notify(ctx, InviteDetector, msg.ChannelID, utils.InviteBlockedEmbed(author), NoticeLifetime)
		},
		OnStrike: func(_ context.Context, st core.Strike) error {
			d.dispatcher.Alert(s.StaffLog(), utils.InviteReportEmbed(author, res, st.Count, cfg.BanLimit, st.Expiry))
			return nil
		},
		OnBan: func(ctx context.Context, st core.Strike) error {
			reason := utils.BanReason(fmt.Sprintf("User sent %d unauthorized invites in a %d minute period.",
				st.Count, cfg.Minutes))
			return d.dispatcher.Ban(ctx, InviteDetector, msg.GuildID, msg.AuthorID, reason, 0)
		},
	})

	d.log.Info("unauthorized invite filtered",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.AuthorID),
		zap.String("code", res.Code),
		zap.String("target_guild_id", res.GuildID),
		zap.Int("strike", strike.Count),
		zap.Bool("banned", strike.Banned))
	return errors.Join(delErr, err)
}
