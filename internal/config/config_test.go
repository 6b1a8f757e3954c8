package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default server is localhost:3000", func(t *testing.T) {
		t.Parallel()
		if cfg.Server != "http://localhost:3000" {
			t.Errorf("expected Server to be 'http://localhost:3000', got '%s'", cfg.Server)
		}
	})

	t.Run("default inactivity timeout is 17.5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.InactivityTimeout != 17500*time.Millisecond {
			t.Errorf("expected InactivityTimeout to be 17.5s, got %v", cfg.InactivityTimeout)
		}
	})

	t.Run("default depth is 1 without recursion", func(t *testing.T) {
		t.Parallel()
		if cfg.Depth != 1 || cfg.Recursive {
			t.Errorf("expected depth 1 and no recursion, got %d/%v", cfg.Depth, cfg.Recursive)
		}
	})

	t.Run("default crawl service settings", func(t *testing.T) {
		t.Parallel()
		s := cfg.Serve
		if s.ListenAddress != ":3000" || s.Workers != 8 || s.MaxPages != 100 {
			t.Errorf("unexpected serve defaults %+v", s)
		}
		if s.CrawlDelay != 500*time.Millisecond || s.MaxCrawlDelay != 5*time.Second {
			t.Errorf("unexpected crawl delays %v/%v", s.CrawlDelay, s.MaxCrawlDelay)
		}
		if s.Tor || s.TorProxyAddress != "" {
			t.Error("expected direct egress by default")
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := cfg.Serve.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestConfigValidate tests the client validation rules.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "relative server", modify: func(c *Config) { c.Server = "localhost:3000" }, want: ErrInvalidServer},
		{name: "empty server", modify: func(c *Config) { c.Server = "" }, want: ErrInvalidServer},
		{name: "zero timeout", modify: func(c *Config) { c.InactivityTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative depth", modify: func(c *Config) { c.Depth = -1 }, want: ErrInvalidDepth},
		{name: "both report formats", modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, want: ErrConflictingReportFormats},
		{name: "https server", modify: func(c *Config) { c.Server = "https://finder.example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestServeConfigValidate tests the crawl service validation rules.
func TestServeConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*ServeConfig)
		want   error
	}{
		{name: "empty listen address", modify: func(s *ServeConfig) { s.ListenAddress = "" }, want: ErrInvalidListenAddress},
		{name: "zero pages", modify: func(s *ServeConfig) { s.MaxPages = 0 }, want: ErrInvalidMaxPages},
		{name: "negative max depth", modify: func(s *ServeConfig) { s.MaxDepth = -1 }, want: ErrInvalidDepth},
		{name: "bad origin", modify: func(s *ServeConfig) { s.AllowedOrigins = []string{"example.com"} }, want: ErrInvalidOrigin},
		{name: "any origin", modify: func(s *ServeConfig) { s.AllowedOrigins = []string{"*"} }},
		{name: "zero workers", modify: func(s *ServeConfig) { s.Workers = 0 }, want: ErrInvalidWorkers},
		{name: "negative delay", modify: func(s *ServeConfig) { s.CrawlDelay = -time.Second }, want: ErrInvalidCrawlDelay},
		{name: "max below min delay", modify: func(s *ServeConfig) { s.MaxCrawlDelay = 100 * time.Millisecond }, want: ErrInvalidCrawlDelay},
		{name: "zero fetch timeout", modify: func(s *ServeConfig) { s.FetchTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative body size", modify: func(s *ServeConfig) { s.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "negative cache TTL", modify: func(s *ServeConfig) { s.CacheTTL = -time.Minute }, want: ErrInvalidCacheTTL},
		{name: "tor and proxy", modify: func(s *ServeConfig) { s.Tor, s.TorProxyAddress = true, DefaultTorProxyAddress }, want: ErrConflictingEgress},
		{name: "external proxy only", modify: func(s *ServeConfig) { s.TorProxyAddress = DefaultTorProxyAddress }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewServeConfig()
			tt.modify(&s)

			err := s.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestFileGetSiteConfig tests merging site settings over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:  "default=1",
			Headers: map[string]string{"X-Default": "yes"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Depth:          2,
				Headers:        map[string]string{"X-Site": "yes"},
				IgnorePatterns: []string{"/admin/*"},
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("other.org")
		if sc.Cookie != "default=1" || sc.Depth != 0 {
			t.Errorf("unexpected config %+v", sc)
		}
	})

	t.Run("known host is merged", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("example.com")
		if sc.Cookie != "default=1" {
			t.Errorf("expected default cookie, got %q", sc.Cookie)
		}
		if sc.Depth != 2 {
			t.Errorf("expected depth 2, got %d", sc.Depth)
		}
		if sc.Headers["X-Default"] != "yes" || sc.Headers["X-Site"] != "yes" {
			t.Errorf("expected merged headers, got %v", sc.Headers)
		}
		if len(sc.IgnorePatterns) != 1 {
			t.Errorf("expected 1 ignore pattern, got %d", len(sc.IgnorePatterns))
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("example.com")
		if _, ok := cf.Defaults.Headers["X-Site"]; ok {
			t.Error("site headers leaked into defaults")
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		err := LoadConfigFile("/nonexistent/path/.imagefinder", NewConfig())
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
	})

	t.Run("loads valid YAML config over defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".imagefinder")
		content := `server: https://finder.example.com
inactivityTimeout: 30s
recursive: true
serve:
  workers: 4
  crawlDelay: 1s
defaults:
  cookie: "default=abc"
sites:
  example.com:
    depth: 3
    headers:
      Authorization: "Bearer token"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg := NewConfig()
		if err := LoadConfigFile(configPath, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Server != "https://finder.example.com" {
			t.Errorf("unexpected server %q", cfg.Server)
		}
		if cfg.InactivityTimeout != 30*time.Second {
			t.Errorf("unexpected timeout %v", cfg.InactivityTimeout)
		}
		if !cfg.Recursive || cfg.Depth != DefaultDepth {
			t.Errorf("expected recursion with default depth, got %v/%d", cfg.Recursive, cfg.Depth)
		}
		if cfg.Serve.Workers != 4 || cfg.Serve.CrawlDelay != time.Second {
			t.Errorf("unexpected serve settings %+v", cfg.Serve)
		}
		if cfg.Serve.MaxPages != DefaultMaxPages {
			t.Errorf("expected untouched max pages, got %d", cfg.Serve.MaxPages)
		}
		if cfg.Sites.Defaults.Cookie != "default=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Sites.Defaults.Cookie)
		}
		if cfg.Sites.Sites["example.com"].Depth != 3 {
			t.Error("expected site depth 3")
		}
		if cfg.ConfigFilePath != configPath {
			t.Errorf("expected ConfigFilePath %q, got %q", configPath, cfg.ConfigFilePath)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".imagefinder")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if err := LoadConfigFile(configPath, NewConfig()); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestApplyEnv tests environment overrides. It does not run in parallel
// because it sets process environment variables.
func TestApplyEnv(t *testing.T) {
	t.Setenv("IMAGEFINDER_SERVER", "http://env.example:8080")
	t.Setenv("IMAGEFINDER_DEPTH", "4")
	t.Setenv("IMAGEFINDER_SERVE_WORKERS", "2")
	t.Setenv("IMAGEFINDER_SERVE_CACHE_TTL", "10m")

	cfg := NewConfig()
	cfg.Recursive = true
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server != "http://env.example:8080" {
		t.Errorf("unexpected server %q", cfg.Server)
	}
	if cfg.Depth != 4 {
		t.Errorf("unexpected depth %d", cfg.Depth)
	}
	if cfg.Serve.Workers != 2 {
		t.Errorf("unexpected workers %d", cfg.Serve.Workers)
	}
	if cfg.Serve.CacheTTL != 10*time.Minute {
		t.Errorf("unexpected cache TTL %v", cfg.Serve.CacheTTL)
	}
	if !cfg.Recursive || cfg.InactivityTimeout != DefaultInactivityTimeout {
		t.Error("unset variables must leave values untouched")
	}

	t.Setenv("IMAGEFINDER_DEPTH", "deep")
	if err := ApplyEnv(NewConfig()); err == nil {
		t.Error("expected error for malformed value")
	}
}

// TestLoad tests the layered loading entry point.
func TestLoad(t *testing.T) {
	t.Run("explicit missing path is an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("server: http://file.example\ndepth: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Setenv("IMAGEFINDER_SERVER", "http://env.example")

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server != "http://env.example" {
			t.Errorf("expected environment to win, got %q", cfg.Server)
		}
		if cfg.Depth != 2 {
			t.Errorf("expected file depth 2, got %d", cfg.Depth)
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if XDGConfigDir() == "" {
		t.Error("expected non-empty XDG config dir")
	}
	if XDGCacheDir() == "" {
		t.Error("expected non-empty XDG cache dir")
	}
}
