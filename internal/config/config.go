package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	PDF       PDFConfig
	Dashboard DashboardConfig
	Storage   StorageConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type ScraperConfig struct {
	RateLimitMin time.Duration
	RateLimitMax time.Duration
	MaxResults   int
	Workers      int
}

type PDFConfig struct {
	OCREnabled  bool
	OCRLanguage string
	RenderDPI   float64
}

type DashboardConfig struct {
	Enabled bool
	BaseURL string
}

type StorageConfig struct {
	UploadDir string
	JobsFile  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "product_importer"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.5"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Scraper: ScraperConfig{
			RateLimitMin: getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax: getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 8*time.Second),
			MaxResults:   getIntOrDefault("SCRAPER_MAX_RESULTS", 10),
			Workers:      getIntOrDefault("SCRAPER_WORKERS", 2),
		},
		PDF: PDFConfig{
			OCREnabled:  getBoolOrDefault("PDF_OCR_ENABLED", false),
			OCRLanguage: getEnvOrDefault("PDF_OCR_LANGUAGE", "eng"),
			RenderDPI:   float64(getIntOrDefault("PDF_RENDER_DPI", 150)),
		},
		Dashboard: DashboardConfig{
			Enabled: getBoolOrDefault("DASHBOARD_ENABLED", false),
			BaseURL: getEnvOrDefault("DASHBOARD_BASE_URL", ""),
		},
		Storage: StorageConfig{
			UploadDir: getEnvOrDefault("UPLOAD_DIR", "./uploads"),
			JobsFile:  getEnvOrDefault("JOBS_FILE", "./data/jobs.json"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("SCRAPER_WORKERS must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.PDF.RenderDPI < 72 || c.PDF.RenderDPI > 600 {
		return fmt.Errorf("PDF_RENDER_DPI must be between 72 and 600")
	}

	if c.Dashboard.Enabled && c.Dashboard.BaseURL == "" {
		return fmt.Errorf("DASHBOARD_BASE_URL is required when DASHBOARD_ENABLED is set")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
