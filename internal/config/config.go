package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Discord  DiscordConfig
	Steam    SteamConfig
	Kafka    KafkaConfig
}

// AppConfig controls the health/transcript HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines signing parameters for transcript view links.
type AuthConfig struct {
	JWTSecret              string
	TranscriptLinkTTLHours int
	TranscriptBaseURL      string
}

// DiscordConfig holds the guild-specific identifiers. All ids are snowflakes.
type DiscordConfig struct {
	Token                    string   `yaml:"-"`
	GuildID                  string   `yaml:"guild_id"`
	LogChannelID             string   `yaml:"log_channel_id"`
	VoiceLogChannelID        string   `yaml:"voice_log_channel_id"`
	FirstLevelCategoryID     string   `yaml:"first_level_category_id"`
	SecondLevelCategoryID    string   `yaml:"second_level_category_id"`
	SupportRoleIDs           []string `yaml:"support_role_ids"`
	SupportRoleID            string   `yaml:"support_role_id"`
	OwnerRoleID              string   `yaml:"owner_role_id"`
	VerifiedRoleID           string   `yaml:"verified_role_id"`
	TicketCreateChannelID    string   `yaml:"ticket_create_channel_id"`
	VoiceStatusChannelName   string   `yaml:"voice_status_channel_name"`
	VoiceStatusText          string   `yaml:"voice_status_text"`
	PermissionGrantDelaySecs int      `yaml:"permission_grant_delay_seconds"`
	RequireArchive           bool     `yaml:"require_archive"`
	AccountLinkURL           string   `yaml:"account_link_url"`
}

// SteamConfig configures the Steam Web API client.
type SteamConfig struct {
	APIBaseURL     string
	TimeoutSeconds int
}

// KafkaConfig enables the optional event sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables, applying defaults where possible.
// When BOT_CONFIG_FILE points at a YAML file, its discord block overrides the env ids.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	supportRoleID := os.Getenv("DISCORD_SUPPORT_ROLE_ID")
	supportRoles := getEnvAsList("DISCORD_SUPPORT_ROLE_IDS")
	if len(supportRoles) == 0 && supportRoleID != "" {
		supportRoles = []string{supportRoleID}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "community-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TranscriptLinkTTLHours: getEnvAsInt("AUTH_TRANSCRIPT_LINK_TTL_HOURS", 24*7),
			TranscriptBaseURL:      os.Getenv("TRANSCRIPT_BASE_URL"),
		},
		Discord: DiscordConfig{
			Token:                    os.Getenv("DISCORD_TOKEN"),
			GuildID:                  os.Getenv("DISCORD_GUILD_ID"),
			LogChannelID:             os.Getenv("DISCORD_LOG_CHANNEL_ID"),
			VoiceLogChannelID:        os.Getenv("DISCORD_VOICE_LOG_CHANNEL_ID"),
			FirstLevelCategoryID:     os.Getenv("DISCORD_FIRST_LEVEL_CATEGORY_ID"),
			SecondLevelCategoryID:    os.Getenv("DISCORD_SECOND_LEVEL_CATEGORY_ID"),
			SupportRoleIDs:           supportRoles,
			SupportRoleID:            supportRoleID,
			OwnerRoleID:              os.Getenv("DISCORD_OWNER_ROLE_ID"),
			VerifiedRoleID:           os.Getenv("DISCORD_VERIFIED_ROLE_ID"),
			TicketCreateChannelID:    os.Getenv("DISCORD_TICKET_CREATE_CHANNEL_ID"),
			VoiceStatusChannelName:   getEnv("DISCORD_VOICE_STATUS_CHANNEL_NAME", "Talk 1"),
			VoiceStatusText:          getEnv("DISCORD_VOICE_STATUS_TEXT", "❤"),
			PermissionGrantDelaySecs: getEnvAsInt("TICKET_PERMISSION_GRANT_DELAY_SECONDS", 5),
			RequireArchive:           getEnvAsBool("TICKET_REQUIRE_ARCHIVE", false),
			AccountLinkURL:           getEnv("ACCOUNT_LINK_URL", "https://bbn.music/api/@bbn/auth/redirect/discord?goal=/hosting"),
		},
		Steam: SteamConfig{
			APIBaseURL:     getEnv("STEAM_API_BASE_URL", "https://api.steampowered.com"),
			TimeoutSeconds: getEnvAsInt("STEAM_TIMEOUT_SECONDS", 10),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "community-bot.events"),
		},
	}

	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

type fileOverlay struct {
	Discord *DiscordConfig `yaml:"discord"`
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	overlay := fileOverlay{Discord: &c.Discord}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(c.Discord.SupportRoleIDs) == 0 && c.Discord.SupportRoleID != "" {
		c.Discord.SupportRoleIDs = []string{c.Discord.SupportRoleID}
	}
	return nil
}

// Validate reports missing identifiers the bot cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Discord.Token == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if c.Discord.GuildID == "" {
		missing = append(missing, "DISCORD_GUILD_ID")
	}
	if c.Discord.FirstLevelCategoryID == "" {
		missing = append(missing, "DISCORD_FIRST_LEVEL_CATEGORY_ID")
	}
	if c.Discord.SecondLevelCategoryID == "" {
		missing = append(missing, "DISCORD_SECOND_LEVEL_CATEGORY_ID")
	}
	if len(missing) > 0 {
		return errors.New("config: missing " + strings.Join(missing, ", "))
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PermissionGrantDelay is the wait before granting a new ticket's view permission.
func (d DiscordConfig) PermissionGrantDelay() time.Duration {
	if d.PermissionGrantDelaySecs < 0 {
		return 0
	}
	return time.Duration(d.PermissionGrantDelaySecs) * time.Second
}

// IsSupportRole reports whether roleID belongs to the support role set.
func (d DiscordConfig) IsSupportRole(roleID string) bool {
	for _, id := range d.SupportRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Timeout returns the Steam HTTP timeout.
func (s SteamConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// LinkTTL returns the lifetime of signed transcript links.
func (a AuthConfig) LinkTTL() time.Duration {
	if a.TranscriptLinkTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TranscriptLinkTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
