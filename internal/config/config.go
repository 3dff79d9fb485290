package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// server config
	APP_PORT         int
	MAX_UPLOAD_BYTES int64
	// source fetching
	FETCH_TIMEOUT    time.Duration
	FETCH_WORKERS    int
	FETCH_RETRIES    int
	STORAGE_BASE_URL string
	// SOURCE_ROOT is the only directory the server reads sources from;
	// empty disables file sources
	SOURCE_ROOT string
	// aggregation and preview
	FIELD_SHEET_MARKER string
	RECALC_ON_PREVIEW  bool
	// database config; an empty DB_HOST disables the run audit
	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_CONN_MAX_LIFETIME time.Duration
	DB_MAX_IDLE_CONNS    int
	DB_MAX_OPEN_CONNS    int
	// datastore config; an empty project disables datastore field data
	DATASTORE_PROJECT_ID string
	DATASTORE_KIND       string
	// elasticsearch run index; an empty url disables it
	ELASTIC_URL   string
	ELASTIC_INDEX string
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
}

// LoadEnvConfig reads .env when present and fills DefaultEnvConfig from
// the environment.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	DefaultEnvConfig = fromEnv()
	return nil
}

func fromEnv() *envConfig {
	return &envConfig{
		APP_PORT:             getEnvInt("APP_PORT", 8080),
		MAX_UPLOAD_BYTES:     int64(getEnvInt("MAX_UPLOAD_BYTES", 32<<20)),
		FETCH_TIMEOUT:        getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FETCH_WORKERS:        getEnvInt("FETCH_WORKERS", 4),
		FETCH_RETRIES:        getEnvInt("FETCH_RETRIES", 0),
		STORAGE_BASE_URL:     getEnvString("STORAGE_BASE_URL", ""),
		SOURCE_ROOT:          getEnvString("SOURCE_ROOT", ""),
		FIELD_SHEET_MARKER:   getEnvString("FIELD_SHEET_MARKER", "DATAIN"),
		RECALC_ON_PREVIEW:    getEnvBool("RECALC_ON_PREVIEW", false),
		DB_HOST:              getEnvString("DB_HOST", ""),
		DB_PORT:              getEnvInt("DB_PORT", 5432),
		DB_USER:              getEnvString("DB_USER", "postgres"),
		DB_PASSWORD:          getEnvString("DB_PASSWORD", "postgres"),
		DB_NAME:              getEnvString("DB_NAME", "postgres"),
		DB_SSL_MODE:          getEnvString("DB_SSL_MODE", "disable"),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 20*time.Minute),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		DATASTORE_PROJECT_ID: getEnvString("DATASTORE_PROJECT_ID", ""),
		DATASTORE_KIND:       getEnvString("DATASTORE_KIND", "ProcessField"),
		ELASTIC_URL:          getEnvString("ELASTIC_URL", ""),
		ELASTIC_INDEX:        getEnvString("ELASTIC_INDEX", "aggregation_runs"),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
