package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-antispam-bot/internal/antispam"
	"discord-antispam-bot/internal/antispam/detector"
	"discord-antispam-bot/internal/antispam/invite"
	"discord-antispam-bot/internal/cache"
	"discord-antispam-bot/internal/database"
	"discord-antispam-bot/internal/engine/acl"
	"discord-antispam-bot/internal/redis"
	"discord-antispam-bot/internal/settings"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Token       string
	MetricsAddr string // empty disables the metrics endpoint
	Workers     int    // side task workers
}

type Bot struct {
	Session     *discordgo.Session
	DB          *database.Database
	Redis       *redis.Client
	Cache       *cache.Cache
	Settings    *settings.Manager
	AntiSpam    *antispam.Service
	Supervisor  *acl.Supervisor
	Permissions *acl.PermissionCache
	StartTime   time.Time
	Logger      *zap.Logger
	PerfMonitor *PerformanceMonitor

	opts    Options
	metrics *http.Server
}

func New(opts Options, db *database.Database, rdb *redis.Client) (*Bot, error) {
	s, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       120 * time.Second,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	perfMonitor := NewPerformanceMonitor()
	s.Client = &http.Client{
		Transport: &PerfTransport{
			Base:    tr,
			Monitor: perfMonitor,
		},
		Timeout: 15 * time.Second,
	}

	// State backs the bypass permission lookups (guild, roles, channel overwrites)
	s.StateEnabled = true
	s.State.MaxMessageCount = 0
	s.State.TrackPresences = false
	s.State.TrackVoice = false
	s.State.TrackEmojis = false

	s.ShouldReconnectOnError = true
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 3

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	var l2 cache.Remote
	if rdb != nil {
		l2 = rdb
	}
	settingsCache, err := cache.NewCache(l2, cache.Config{DefaultTTL: 5 * time.Minute}, logger.Named("cache"))
	if err != nil {
		return nil, err
	}

	perms, err := acl.NewPermissionCache(s, 0)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	sup := acl.NewSupervisor(logger.Named("supervisor"), workers)
	manager := settings.NewManager(db, settingsCache, logger.Named("settings"))

	deps := detector.Deps{
		Dispatcher:  acl.NewDispatcher(s, sup, logger.Named("dispatcher")),
		Permissions: perms,
		Log:         logger,
	}

	b := &Bot{
		Session:     s,
		DB:          db,
		Redis:       rdb,
		Cache:       settingsCache,
		Settings:    manager,
		AntiSpam:    antispam.New(manager, deps, invite.NewResolver(s), antispam.Options{}),
		Supervisor:  sup,
		Permissions: perms,
		StartTime:   time.Now(),
		Logger:      logger,
		PerfMonitor: perfMonitor,
		opts:        opts,
	}

	s.AddHandler(b.Ready)
	return b, nil
}

// Ready warms the settings cache for every guild the bot is in
func (b *Bot) Ready(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("✓ Ready in %d guilds", len(r.Guilds))

	ids := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		ids = append(ids, g.ID)
	}
	go b.Settings.Warm(context.Background(), ids)
}

func (b *Bot) Start() error {
	log.Println("⚡ Connecting to Discord Gateway...")

	if err := b.Session.Open(); err != nil {
		log.Printf("❌ Failed to connect to Discord Gateway: %v", err)
		log.Println("   Common causes:")
		log.Println("   • Invalid bot token in config")
		log.Println("   • Network connectivity issues")
		log.Println("   • Discord API outage")
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	log.Println("✓ Connected to Discord Gateway")

	if b.Session.State.User == nil {
		u, err := b.Session.User("@me")
		if err != nil {
			log.Printf("❌ Failed to fetch bot user: %v", err)
			return fmt.Errorf("failed to get bot user: %w", err)
		}
		b.Session.State.User = u
	}
	log.Printf("✓ Logged in as: %s (ID: %s)", b.Session.State.User.String(), b.Session.State.User.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.AntiSpam.Start(ctx, b.Session)
	go b.monitorHeartbeat(ctx)

	if b.opts.MetricsAddr != "" {
		b.serveMetrics()
	}

	log.Println("\n🚀 Bot is running!")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return b.Close()
}

func (b *Bot) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler(b.healthChecks(), b.PerfMonitor))
	b.metrics = &http.Server{Addr: b.opts.MetricsAddr, Handler: mux}

	go func() {
		log.Printf("📈 Metrics on %s/metrics, health on %s/healthz", b.opts.MetricsAddr, b.opts.MetricsAddr)
		if err := b.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.Logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

func (b *Bot) healthChecks() map[string]pinger {
	checks := make(map[string]pinger, 2)
	if b.DB != nil {
		checks["postgres"] = b.DB
	}
	if b.Redis != nil {
		checks["redis"] = b.Redis
	}
	return checks
}

func (b *Bot) Close() error {
	log.Println("Shutting down...")
	err := b.Session.Close()

	if b.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		b.metrics.Shutdown(ctx)
		cancel()
	}

	// in-flight alerts finish before the connections go away
	b.Supervisor.Close()
	b.Permissions.Close()
	b.Cache.Close()
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
	if b.Logger != nil {
		b.Logger.Sync()
	}
	return err
}

// monitorHeartbeat records WebSocket heartbeat latency
func (b *Bot) monitorHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		latency := b.Session.HeartbeatLatency()
		b.PerfMonitor.UpdateWSLatency(latency)

		latencyMs := latency.Milliseconds()
		if latencyMs < 100 {
			continue
		}
		b.Logger.Warn("high gateway latency", zap.Int64("latency_ms", latencyMs))
	}
}
