package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/psg-community/psgweb/internal/model"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Discord API
	DiscordBotToken string
	GuildID         string

	// OAuth
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	// Roster（アバター追跡対象メンバーの固定リスト）
	Roster model.Roster

	// Sync
	EventSyncCron      string
	AvatarSyncCron     string
	SessionCleanupCron string
	DiscordTimeout     time.Duration
	DiscordRPS         float64

	// Assets
	StaticDir    string
	AvatarDir    string
	SnapshotPath string

	// Session
	SessionMaxAge int

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.DiscordBotToken = os.Getenv("DISCORD_BOT_TOKEN")
	if cfg.DiscordBotToken == "" {
		missing = append(missing, "DISCORD_BOT_TOKEN")
	}

	cfg.GuildID = os.Getenv("GUILD_ID")
	if cfg.GuildID == "" {
		missing = append(missing, "GUILD_ID")
	}

	cfg.DiscordClientID = os.Getenv("DISCORD_CLIENT_ID")
	if cfg.DiscordClientID == "" {
		missing = append(missing, "DISCORD_CLIENT_ID")
	}

	cfg.DiscordClientSecret = os.Getenv("DISCORD_CLIENT_SECRET")
	if cfg.DiscordClientSecret == "" {
		missing = append(missing, "DISCORD_CLIENT_SECRET")
	}

	cfg.DiscordRedirectURL = os.Getenv("DISCORD_REDIRECT_URL")
	if cfg.DiscordRedirectURL == "" {
		missing = append(missing, "DISCORD_REDIRECT_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Roster（"alice:111,bob:222" 形式）
	roster, err := ParseRoster(os.Getenv("ROSTER"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ROSTER: %w", err)
	}
	cfg.Roster = roster

	// Optional fields with defaults
	cfg.EventSyncCron = getEnvString("EVENT_SYNC_CRON", "0 * * * *")
	cfg.AvatarSyncCron = getEnvString("AVATAR_SYNC_CRON", "30 5 * * *")
	cfg.SessionCleanupCron = getEnvString("SESSION_CLEANUP_CRON", "0 6 * * *")
	cfg.DiscordTimeout = getEnvDuration("DISCORD_TIMEOUT", 10*time.Second)
	cfg.DiscordRPS = getEnvFloat("DISCORD_RPS", 10)
	cfg.StaticDir = getEnvString("STATIC_DIR", "public")
	cfg.AvatarDir = getEnvString("AVATAR_DIR", "public/resources/avatars")
	cfg.SnapshotPath = getEnvString("SNAPSHOT_PATH", "data/events.json")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// ParseRoster は"key:id,key:id"形式のロスター定義をパースする。
// 空文字列は空のロスターとして扱う（アバター同期は何もしない）。
func ParseRoster(raw string) (model.Roster, error) {
	if strings.TrimSpace(raw) == "" {
		return model.Roster{}, nil
	}

	var roster model.Roster
	seen := make(map[string]bool)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, id, ok := strings.Cut(pair, ":")
		key = strings.TrimSpace(key)
		id = strings.TrimSpace(id)
		if !ok || key == "" || id == "" {
			return nil, fmt.Errorf("invalid roster entry %q (want key:id)", pair)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate roster key %q", key)
		}
		seen[key] = true

		roster = append(roster, model.RosterEntry{Key: key, UserID: id})
	}

	return roster, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
