package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"discord-antispam-bot/internal/bot"
	"discord-antispam-bot/internal/database"
	"discord-antispam-bot/internal/redis"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Token       string                  `json:"token" yaml:"token"`
	Redis       *redis.Config           `json:"redis,omitempty" yaml:"redis,omitempty"`
	Postgres    database.PostgresConfig `json:"postgres" yaml:"postgres"`
	MetricsAddr string                  `json:"metricsAddr" yaml:"metricsAddr"`
	Workers     int                     `json:"workers" yaml:"workers"`
}

// loadConfig reads a JSON or YAML config, picked by file extension
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, &config)
	default:
		err = json.Unmarshal(file, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if config.Token == "" {
		config.Token = os.Getenv("DISCORD_TOKEN")
	}
	if config.Token == "" {
		return nil, fmt.Errorf("%s: no bot token", path)
	}
	return &config, nil
}

func configPath() string {
	if p := os.Getenv("ANTISPAM_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return "config.json"
}

func main() {
	path := configPath()
	config, err := loadConfig(path)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	log.Printf("⚙️  Loaded config from %s", path)

	var rdb *redis.Client
	if config.Redis != nil && config.Redis.Addr != "" {
		rdb, err = redis.New(context.Background(), *config.Redis)
		if err != nil {
			log.Fatalf("Error initializing Redis: %v", err)
		}
	} else {
		log.Println("⚠️  Redis not configured, settings cache is in-memory only")
	}

	db, err := database.NewDatabase(config.Postgres)
	if err != nil {
		log.Fatalf("Error initializing Database: %v", err)
	}
	log.Println("✓ Database ready")

	b, err := bot.New(bot.Options{
		Token:       config.Token,
		MetricsAddr: config.MetricsAddr,
		Workers:     config.Workers,
	}, db, rdb)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}
}
