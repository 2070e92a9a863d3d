package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Library   LibraryConfig
	OpenAI    OpenAIConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

// Enabled reports whether export manifests are stored in postgres
func (c DatabaseConfig) Enabled() bool {
	return c.Database != ""
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether redis backs the handle store and rate limiting
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	Secret string
}

type LibraryConfig struct {
	BaseDir         string
	NormalizeWidth  int
	NormalizeHeight int
	MaxUploadMB     int64
	PruneStale      bool
}

type OpenAIConfig struct {
	Keys    []string
	Model   string
	BaseURL string
	Backoff time.Duration
}

type RateLimitConfig struct {
	GenerateRequests int
	Window           time.Duration
}

func Load() *Config {
	// .env values never override variables already set in the environment
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LIBRARY_BASE_DIR", "./library")
	viper.SetDefault("LIBRARY_NORMALIZE_WIDTH", 500)
	viper.SetDefault("LIBRARY_NORMALIZE_HEIGHT", 500)
	viper.SetDefault("LIBRARY_MAX_UPLOAD_MB", 256)
	viper.SetDefault("LIBRARY_PRUNE_STALE", true)
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("OPENAI_BACKOFF", "2s")
	viper.SetDefault("RATE_LIMIT_GENERATE", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Library: LibraryConfig{
			BaseDir:         viper.GetString("LIBRARY_BASE_DIR"),
			NormalizeWidth:  viper.GetInt("LIBRARY_NORMALIZE_WIDTH"),
			NormalizeHeight: viper.GetInt("LIBRARY_NORMALIZE_HEIGHT"),
			MaxUploadMB:     viper.GetInt64("LIBRARY_MAX_UPLOAD_MB"),
			PruneStale:      viper.GetBool("LIBRARY_PRUNE_STALE"),
		},
		OpenAI: OpenAIConfig{
			Keys: APIKeys(
				viper.GetString("OPENAI_API_KEYS"),
				viper.GetString("API_KEY"),
				viper.GetString("API_KEY_2"),
				viper.GetString("API_KEY_3"),
			),
			Model:   viper.GetString("OPENAI_MODEL"),
			BaseURL: viper.GetString("OPENAI_BASE_URL"),
			Backoff: viper.GetDuration("OPENAI_BACKOFF"),
		},
		RateLimit: RateLimitConfig{
			GenerateRequests: viper.GetInt("RATE_LIMIT_GENERATE"),
			Window:           viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

// APIKeys merges comma separated key lists into one ordered list without
// blanks or repeats.
func APIKeys(sources ...string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, source := range sources {
		for _, key := range splitList(source) {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
