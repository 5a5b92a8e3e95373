package antispam

import (
	"context"
	"fmt"
	"time"

	"discord-antispam-bot/internal/antispam/core"
	"discord-antispam-bot/internal/antispam/detector"
	"discord-antispam-bot/internal/metrics"
	"discord-antispam-bot/internal/settings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSweepInterval = time.Minute
	messageTimeout       = 30 * time.Second
)

// Options tune the service; zero values pick defaults
type Options struct {
	SelfID        string // the bot's own user id, learned from the session on Start when empty
	SweepInterval time.Duration
}

// Service filters inbound messages and fans each one out to the detectors
type Service struct {
	settings  settings.Provider
	detectors []detector.Detector
	stores    []*core.CooldownStore
	opts      Options
	log       *zap.Logger
}

// New wires the mass-mention guard and the invite and attachment detectors
func New(provider settings.Provider, deps detector.Deps, resolver detector.InviteResolver, opts Options) *Service {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	invites := detector.NewInviteSpam(deps, resolver)
	attachments := detector.NewAttachmentSpam(deps)

	return &Service{
		settings: provider,
		detectors: []detector.Detector{
			detector.NewMentionGuard(deps),
			invites,
			attachments,
		},
		stores: []*core.CooldownStore{invites.Store(), attachments.Store()},
		opts:   opts,
		log:    log.Named("antispam"),
	}
}

// Accept is the intake filter: guild messages from real members only
func (s *Service) Accept(m *discordgo.MessageCreate) bool {
	switch {
	case m.Author == nil, m.GuildID == "":
		return false
	case m.Author.Bot, m.WebhookID != "":
		return false
	case s.opts.SelfID != "" && m.Author.ID == s.opts.SelfID:
		return false
	}
	return true
}

// Handle runs every detector on the message concurrently. Each detector's
// failure is logged on its own; the first one is returned.
func (s *Service) Handle(ctx context.Context, msg detector.Message) error {
	gs, err := s.settings.Settings(ctx, msg.GuildID)
	if err != nil {
		metrics.SettingsLoadFailures.Inc()
		s.log.Error("settings unavailable, message not inspected",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
		return fmt.Errorf("settings for guild %s: %w", msg.GuildID, err)
	}
	metrics.MessagesInspected.Inc()

	var g errgroup.Group
	for _, d := range s.detectors {
		d := d
		g.Go(func() error {
			if err := d.Inspect(ctx, msg, gs); err != nil {
				metrics.DetectorErrors.WithLabelValues(d.Name()).Inc()
				s.log.Error("detector failed",
					zap.String("detector", d.Name()),
					zap.String("guild_id", msg.GuildID),
					zap.String("message_id", msg.MessageID),
					zap.Error(err))
				return fmt.Errorf("%s: %w", d.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Sweep drops expired cooldown records and refreshes the record gauges
func (s *Service) Sweep() int {
	removed := 0
	for _, st := range s.stores {
		removed += st.Sweep()
		metrics.CooldownRecords.WithLabelValues(string(st.Kind())).Set(float64(st.Len()))
	}
	return removed
}

// Start registers the message handler and runs the sweeper until ctx ends
func (s *Service) Start(ctx context.Context, session *discordgo.Session) {
	if s.opts.SelfID == "" && session.State != nil && session.State.User != nil {
		s.opts.SelfID = session.State.User.ID
	}

	session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if !s.Accept(m) {
			return
		}
		mctx, cancel := context.WithTimeout(ctx, messageTimeout)
		defer cancel()
		_ = s.Handle(mctx, detector.FromEvent(m))
	})

	go s.sweepLoop(ctx)

	s.log.Info("anti-spam started",
		zap.Int("detectors", len(s.detectors)),
		zap.Duration("sweep_interval", s.opts.SweepInterval))
}

func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("expired cooldown records swept", zap.Int("removed", n))
			}
		}
	}
}
