package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"watchlist/internal/config"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "watchlist")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "watchlist.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.RateLimit.MaxRequests != 35 || cfg.RateLimit.WindowMS != 10000 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Import.BatchSize != 10 {
		t.Fatalf("unexpected batch size: %d", cfg.Import.BatchSize)
	}
	if cfg.Import.ConflictStrategy != "skip" {
		t.Fatalf("unexpected conflict strategy: %q", cfg.Import.ConflictStrategy)
	}
	if err := cfg.ValidateCatalog(); err != nil {
		t.Fatalf("ValidateCatalog returned error: %v", err)
	}
}

func TestLoadParsesFileAndNormalizesEnums(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[tmdb]
api_key = " file-key "

[import]
conflict_strategy = " KEEP_HIGHER_RATING "
batch_size = 0

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file %q to be used, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.TMDB.APIKey != "file-key" {
		t.Fatalf("expected trimmed api key, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Import.ConflictStrategy != "keep_higher_rating" {
		t.Fatalf("expected lowercased strategy, got %q", cfg.Import.ConflictStrategy)
	}
	if cfg.Import.BatchSize != 10 {
		t.Fatalf("expected default batch size, got %d", cfg.Import.BatchSize)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[import]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantMsg string
	}{
		{"bad strategy", func(c *config.Config) { c.Import.ConflictStrategy = "newest" }, "import.conflict_strategy"},
		{"zero window", func(c *config.Config) { c.RateLimit.WindowMS = 0 }, "rate_limit.window_ms"},
		{"zero requests", func(c *config.Config) { c.RateLimit.MaxRequests = 0 }, "rate_limit.max_requests"},
		{"redis without url", func(c *config.Config) { c.RateLimit.Backend = config.RateBackendRedis }, "rate_limit.redis_url"},
		{"unknown backend", func(c *config.Config) { c.RateLimit.Backend = "memcached" }, "rate_limit.backend"},
		{"score out of range", func(c *config.Config) { c.Import.MinMatchScore = 101 }, "import.min_match_score"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected %q in %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestValidateCatalogRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateCatalog(); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "sample-key")
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.RateLimit.Backend != config.RateBackendMemory {
		t.Fatalf("unexpected backend %q", cfg.RateLimit.Backend)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
