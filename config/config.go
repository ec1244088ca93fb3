package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fetch modes for reading the channel preview.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ChannelUsername string
	ChannelBaseURL  string
	MaxMessages     int
	ContactHandle   string
	ChannelDump     string

	FetchMode       string
	ChromeBin       string
	UserAgent       string
	RequestTimeout  time.Duration
	PageRateLimitMs int

	PhotosDir            string
	AlbumWindow          int
	DedupLinkPreview     bool
	PruneDuplicatePhotos bool

	CSVOutputPath string
	Timezone      *time.Location
	LogLevel      string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	tzName := getEnv("TIMEZONE", "UTC")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("config: load timezone %q: %w", tzName, err)
	}

	cfg := &Config{
		ChannelUsername: strings.TrimPrefix(getEnv("CHANNEL_USERNAME", "rooneyform_warehouse"), "@"),
		ChannelBaseURL:  strings.TrimRight(getEnv("CHANNEL_BASE_URL", "https://t.me"), "/"),
		MaxMessages:     getEnvInt("MAX_MESSAGES", 1000),
		ContactHandle:   getEnv("CONTACT_HANDLE", "@rooneyform_admin"),
		ChannelDump:     getEnv("CHANNEL_DUMP", ""),

		FetchMode: strings.ToLower(getEnv("FETCH_MODE", FetchModeHTTP)),
		ChromeBin: getEnv("CHROME_BIN", ""),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		PageRateLimitMs: getEnvInt("PAGE_RATE_LIMIT_MS", 1000),

		PhotosDir:            getEnv("PHOTOS_DIR", "photos"),
		AlbumWindow:          getEnvInt("ALBUM_WINDOW", 20),
		DedupLinkPreview:     getEnvBool("DEDUP_LINK_PREVIEW", false),
		PruneDuplicatePhotos: getEnvBool("PRUNE_DUPLICATE_PHOTOS", false),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "football_jerseys.csv"),
		Timezone:      tz,
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rooneyform"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ChannelUsername == "" {
		errs = append(errs, errors.New("CHANNEL_USERNAME must not be empty"))
	}
	if c.MaxMessages <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGES must be positive, got %d", c.MaxMessages))
	}
	if c.AlbumWindow < 0 {
		errs = append(errs, fmt.Errorf("ALBUM_WINDOW must not be negative, got %d", c.AlbumWindow))
	}
	if c.FetchMode != FetchModeHTTP && c.FetchMode != FetchModeBrowser {
		errs = append(errs, fmt.Errorf("FETCH_MODE must be %q or %q, got %q",
			FetchModeHTTP, FetchModeBrowser, c.FetchMode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
