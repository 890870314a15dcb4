package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Graph GraphConfig
}

// GraphConfig carries the client-credential identity used against the
// Microsoft Graph API.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string

	// Catalog id of the Teams app installed for surveyed users.
	TeamsAppID string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "officepulse"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "officepulse"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Graph: GraphConfig{
			TenantID:     strings.TrimSpace(getenv("GRAPH_TENANT_ID", "")),
			ClientID:     strings.TrimSpace(getenv("GRAPH_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("GRAPH_CLIENT_SECRET", "")),
			BaseURL:      getenv("GRAPH_BASE_URL", "https://graph.microsoft.com/beta"),
			TeamsAppID:   strings.TrimSpace(getenv("GRAPH_TEAMS_APP_ID", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// StagingTableName returns the per-environment staging table for a target
// table. Non-production environments keep a debug_ prefix so staged rows can
// be inspected after a run.
func (c Config) StagingTableName(target string) string {
	if c.IsProduction() {
		return "import_staging_" + target
	}
	return "debug_import_staging_" + target
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
