package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	DatabaseURL       string
	Port              string
	AllowedOrigins    []string
	AdminServiceToken string

	EventName      string
	ExportTimezone *time.Location
	ExportDir      string

	ReconcileInterval time.Duration

	R2 R2Config
}

// R2Config holds Cloudflare R2 credentials for export archives.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is set to talk to a bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != ""
}

// Load reads the process environment. Call godotenv.Load first to pick up .env.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              getEnv("PORT", "5200"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		AdminServiceToken: os.Getenv("ADMIN_SERVICE_TOKEN"),
		EventName:         getEnv("EVENT_NAME", "Food Claims"),
		ExportDir:         getEnv("EXPORT_DIR", "exports"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable not set")
	}

	tzName := getEnv("EXPORT_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPORT_TIMEZONE %q: %w", tzName, err)
	}
	cfg.ExportTimezone = loc

	interval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, errors.New("RECONCILE_INTERVAL must not be negative")
	}
	cfg.ReconcileInterval = interval

	return cfg, nil
}

// ProvisionConfig is what the participant generation tool reads. Nothing is
// required here; the tool decides which values it needs from its flags.
type ProvisionConfig struct {
	DatabaseURL        string
	RosterURL          string
	RosterServiceToken string
}

func LoadProvision() ProvisionConfig {
	return ProvisionConfig{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RosterURL:          getEnv("ROSTER_URL", ""),
		RosterServiceToken: getEnv("ROSTER_SERVICE_TOKEN", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
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
