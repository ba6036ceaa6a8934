/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/citysigns/ledpanel/internal/models"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MediaRoot   string // Base directory; each location stores media under MediaRoot/<location>
	MetricsBind string

	// Auth
	JWTSigningKey string
	AdminUser     string
	AdminPassword string
	SessionTTL    time.Duration
	SSOTokenTTL   time.Duration // Short-lived handoff tokens for central -> device redirects

	// Display timing
	ImageDefaultSeconds  int // Used when an upload carries no explicit duration
	VideoFallbackSeconds int // Used when every duration probe fails
	MinDisplaySeconds    int

	// Duration probe tooling
	FFprobeBin    string
	GstDiscoverer string

	// Edge sync agent
	CentralURL      string
	SyncInterval    time.Duration
	ProbeTimeout    time.Duration
	ListTimeout     time.Duration
	DownloadTimeout time.Duration
	DeleteOrphans   bool // Also remove local files pruned from the central list

	// Location directory
	LocationsFile string
	Locations     []models.Location
}

// defaultLocations is the built-in site directory used when no locations file
// is configured. These match the four production displays.
var defaultLocations = []models.Location{
	{ID: "belediye", Name: "Belediye Binasi LED Ekran", Address: "192.168.251.174"},
	{ID: "havuzbasi", Name: "Havuzbasi Kent Meydani LED Ekran", Address: "192.168.251.175"},
	{ID: "yenisehir", Name: "Yenisehir LED Ekran", Address: "192.168.251.176"},
	{ID: "gurcukapi", Name: "Gurcukapi LED Ekran", Address: "192.168.251.177"},
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("LEDPANEL_ENV", "development"),
		HTTPBind:    getEnv("LEDPANEL_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("LEDPANEL_HTTP_PORT", 5000),
		MediaRoot:   getEnv("LEDPANEL_MEDIA_ROOT", "./uploads"),
		MetricsBind: getEnv("LEDPANEL_METRICS_BIND", "127.0.0.1:9000"),

		JWTSigningKey: getEnv("LEDPANEL_JWT_SIGNING_KEY", ""),
		AdminUser:     getEnv("LEDPANEL_ADMIN_USER", "admin"),
		AdminPassword: getEnv("LEDPANEL_ADMIN_PASSWORD", ""),
		SessionTTL:    getEnvDuration("LEDPANEL_SESSION_TTL", 24*time.Hour),
		SSOTokenTTL:   getEnvDuration("LEDPANEL_SSO_TOKEN_TTL", 5*time.Minute),

		ImageDefaultSeconds:  getEnvInt("LEDPANEL_IMAGE_DEFAULT_SECONDS", 7),
		VideoFallbackSeconds: getEnvInt("LEDPANEL_VIDEO_FALLBACK_SECONDS", 15),
		MinDisplaySeconds:    getEnvInt("LEDPANEL_MIN_DISPLAY_SECONDS", 1),

		FFprobeBin:    getEnv("LEDPANEL_FFPROBE_BIN", "ffprobe"),
		GstDiscoverer: getEnv("LEDPANEL_GST_DISCOVERER_BIN", "gst-discoverer-1.0"),

		CentralURL:      getEnv("LEDPANEL_CENTRAL_URL", ""),
		SyncInterval:    getEnvDuration("LEDPANEL_SYNC_INTERVAL", 30*time.Second),
		ProbeTimeout:    getEnvDuration("LEDPANEL_SYNC_PROBE_TIMEOUT", 5*time.Second),
		ListTimeout:     getEnvDuration("LEDPANEL_SYNC_LIST_TIMEOUT", 10*time.Second),
		DownloadTimeout: getEnvDuration("LEDPANEL_SYNC_DOWNLOAD_TIMEOUT", 30*time.Second),
		DeleteOrphans:   getEnvBool("LEDPANEL_SYNC_DELETE_ORPHANS", false),

		LocationsFile: getEnv("LEDPANEL_LOCATIONS_FILE", ""),
	}

	if cfg.ImageDefaultSeconds <= 0 || cfg.VideoFallbackSeconds <= 0 {
		return nil, fmt.Errorf("display durations must be positive")
	}

	if cfg.SyncInterval <= 0 {
		return nil, fmt.Errorf("LEDPANEL_SYNC_INTERVAL must be positive")
	}

	locations, err := loadLocations(cfg.LocationsFile)
	if err != nil {
		return nil, err
	}
	cfg.Locations = locations

	return cfg, nil
}

// ValidateServer checks the requirements of the serve path. The sync agent
// loads the same config but needs neither auth material nor admin
// credentials, so these checks live here rather than in Load.
func (c *Config) ValidateServer() error {
	if c.JWTSigningKey == "" {
		return fmt.Errorf("LEDPANEL_JWT_SIGNING_KEY must be provided")
	}
	if strings.EqualFold(c.Environment, "production") && c.AdminPassword == "" {
		return fmt.Errorf("LEDPANEL_ADMIN_PASSWORD must be set in production")
	}
	return nil
}

// LocationIDs returns the ids of all configured locations, in directory order.
func (c *Config) LocationIDs() []string {
	ids := make([]string, 0, len(c.Locations))
	for _, loc := range c.Locations {
		ids = append(ids, loc.ID)
	}
	return ids
}

// LocationByID looks up a configured location.
func (c *Config) LocationByID(id string) (models.Location, bool) {
	for _, loc := range c.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return models.Location{}, false
}

// loadLocations reads the site directory from a YAML file, or falls back to
// the built-in set. The location set is fixed for the process lifetime.
func loadLocations(path string) ([]models.Location, error) {
	if path == "" {
		return defaultLocations, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}

	var doc struct {
		Locations []models.Location `yaml:"locations"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}

	if len(doc.Locations) == 0 {
		return nil, fmt.Errorf("locations file %s defines no locations", path)
	}

	seen := make(map[string]struct{}, len(doc.Locations))
	for _, loc := range doc.Locations {
		if loc.ID == "" {
			return nil, fmt.Errorf("locations file %s contains a location without id", path)
		}
		if _, dup := seen[loc.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %q", loc.ID)
		}
		seen[loc.ID] = struct{}{}
	}

	return doc.Locations, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		// Bare integers are treated as seconds for operator convenience.
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
