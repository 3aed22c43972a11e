package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Discord  DiscordConfig
	Admin    AdminConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	URL                   string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
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

// AuthConfig defines session and local account parameters.
type AuthConfig struct {
	SessionSecret     string
	SessionTTLMinutes int
	BcryptCost        int
	AdminUsername     string
	AdminPassword     string
	SecureCookies     bool
	// SessionSecretGenerated is set when SESSION_SECRET was empty and a
	// random per-process secret is used instead.
	SessionSecretGenerated bool
}

// DiscordConfig carries identity-provider and bot credentials. Missing
// values disable the corresponding feature.
type DiscordConfig struct {
	ClientID               string
	ClientSecret           string
	CallbackURL            string
	BotToken               string
	AppID                  string
	GuildID                string
	LoginTimeoutSeconds    int
	RegisterTimeoutSeconds int
}

// AdminConfig describes how admin status is derived for Discord users.
type AdminConfig struct {
	PermissionMask int64
	OwnerIsAdmin   bool
	UserIDs        []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	mask, err := strconv.ParseInt(getEnv("ADMIN_PERMISSION_MASK", "0x8"), 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_PERMISSION_MASK: %w", err)
	}

	appEnv := getEnv("APP_ENV", "development")
	port := getEnv("APP_PORT", "8080")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  port,
			Version:               getEnv("APP_VERSION", "dev"),
			URL:                   strings.TrimRight(getEnv("APP_URL", "http://localhost:"+port), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            getEnv("DATABASE_URL", os.Getenv("POSTGRES_DSN")),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SessionSecret:     os.Getenv("SESSION_SECRET"),
			SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 7*24*60),
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminUsername:     os.Getenv("ADMIN_USERNAME"),
			AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
			SecureCookies:     getEnvAsBool("SESSION_SECURE_COOKIES", appEnv == "production"),
		},
		Discord: DiscordConfig{
			ClientID:               os.Getenv("DISCORD_CLIENT_ID"),
			ClientSecret:           os.Getenv("DISCORD_CLIENT_SECRET"),
			CallbackURL:            os.Getenv("DISCORD_CALLBACK_URL"),
			BotToken:               os.Getenv("DISCORD_BOT_TOKEN"),
			AppID:                  os.Getenv("DISCORD_APP_ID"),
			GuildID:                os.Getenv("DISCORD_GUILD_ID"),
			LoginTimeoutSeconds:    getEnvAsInt("DISCORD_LOGIN_TIMEOUT_SECONDS", 15),
			RegisterTimeoutSeconds: getEnvAsInt("DISCORD_REGISTER_TIMEOUT_SECONDS", 10),
		},
		Admin: AdminConfig{
			PermissionMask: mask,
			OwnerIsAdmin:   getEnvAsBool("ADMIN_OWNER_IS_ADMIN", true),
			UserIDs:        getEnvAsList("ADMIN_USER_IDS"),
		},
	}

	if cfg.Auth.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Auth.SessionSecret = secret
		cfg.Auth.SessionSecretGenerated = true
	}

	if cfg.Discord.CallbackURL == "" {
		cfg.Discord.CallbackURL = cfg.App.URL + "/auth/discord/callback"
	}

	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
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

// SessionTTL returns the lifetime of issued session tokens.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// OAuthEnabled reports whether Discord login can be offered.
func (d DiscordConfig) OAuthEnabled() bool {
	return d.ClientID != "" && d.ClientSecret != ""
}

// BotEnabled reports whether the bot has enough configuration to start.
func (d DiscordConfig) BotEnabled() bool {
	return d.BotToken != "" && d.AppID != ""
}

// MissingBotSettings names the absent bot variables.
func (d DiscordConfig) MissingBotSettings() []string {
	var missing []string
	if d.BotToken == "" {
		missing = append(missing, "DISCORD_BOT_TOKEN")
	}
	if d.AppID == "" {
		missing = append(missing, "DISCORD_APP_ID")
	}
	return missing
}

func (d DiscordConfig) LoginTimeout() time.Duration {
	return time.Duration(d.LoginTimeoutSeconds) * time.Second
}

func (d DiscordConfig) RegisterTimeout() time.Duration {
	return time.Duration(d.RegisterTimeoutSeconds) * time.Second
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
