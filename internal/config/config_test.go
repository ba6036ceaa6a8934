package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LEDPANEL_JWT_SIGNING_KEY", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 5000 {
		t.Fatalf("expected port 5000, got %d", cfg.HTTPPort)
	}
	if cfg.ImageDefaultSeconds != 7 {
		t.Fatalf("expected image default 7, got %d", cfg.ImageDefaultSeconds)
	}
	if cfg.VideoFallbackSeconds != 15 {
		t.Fatalf("expected video fallback 15, got %d", cfg.VideoFallbackSeconds)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Fatalf("expected 30s sync interval, got %s", cfg.SyncInterval)
	}
	if len(cfg.Locations) != 4 {
		t.Fatalf("expected 4 built-in locations, got %d", len(cfg.Locations))
	}
	if _, ok := cfg.LocationByID("belediye"); !ok {
		t.Fatalf("built-in directory should contain belediye")
	}
}

func TestLoad_NoSigningKeyStillLoads(t *testing.T) {
	t.Setenv("LEDPANEL_JWT_SIGNING_KEY", "")

	// The sync agent runs without auth material; only the serve path
	// requires it.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Fatalf("expected server validation error without signing key")
	}
}

func TestValidateServer_ProductionRequiresAdminPassword(t *testing.T) {
	t.Setenv("LEDPANEL_JWT_SIGNING_KEY", "test-secret")
	t.Setenv("LEDPANEL_ENV", "production")
	t.Setenv("LEDPANEL_ADMIN_PASSWORD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Fatalf("expected error without admin password in production")
	}

	cfg.AdminPassword = "hunter2"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer with password: %v", err)
	}
}

func TestLoad_BareIntDurationIsSeconds(t *testing.T) {
	t.Setenv("LEDPANEL_JWT_SIGNING_KEY", "test-secret")
	t.Setenv("LEDPANEL_SYNC_INTERVAL", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncInterval != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.SyncInterval)
	}
}

func TestLoad_LocationsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yaml")
	doc := `locations:
  - id: merkez
    name: Merkez Meydan
    address: 10.0.0.10
  - id: sanayi
    name: Sanayi Girisi
    address: 10.0.0.11
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("LEDPANEL_JWT_SIGNING_KEY", "test-secret")
	t.Setenv("LEDPANEL_LOCATIONS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(cfg.Locations))
	}
	loc, ok := cfg.LocationByID("sanayi")
	if !ok || loc.Address != "10.0.0.11" {
		t.Fatalf("unexpected location lookup result: %+v ok=%v", loc, ok)
	}
}

func TestLoad_LocationsFileDuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yaml")
	doc := `locations:
  - id: merkez
    name: One
    address: 10.0.0.10
  - id: merkez
    name: Two
    address: 10.0.0.11
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("LEDPANEL_JWT_SIGNING_KEY", "test-secret")
	t.Setenv("LEDPANEL_LOCATIONS_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for duplicate location id")
	}
}
