package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8787" {
		t.Errorf("expected default addr :8787, got %s", cfg.Server.Addr)
	}
	if !cfg.TransportEnabled(TransportWebSocket) {
		t.Error("expected websocket transport by default")
	}
	if cfg.NeedsNATS() {
		t.Error("expected NATS to be unnecessary by default")
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if !cfg.FollowScroll() {
		t.Error("expected follow_scroll by default")
	}
	if cfg.Style.SelectedCSS != "border: 1px solid red" {
		t.Errorf("unexpected selected css %q", cfg.Style.SelectedCSS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.Server.Transports = []string{"carrier-pigeon"} },
			wantErr: true,
		},
		{
			name:    "nats transport",
			modify:  func(c *Config) { c.Server.Transports = []string{TransportNATS} },
			wantErr: false,
		},
		{
			name:    "zero fetch timeout",
			modify:  func(c *Config) { c.Fetch.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative refresh",
			modify:  func(c *Config) { c.Fetch.RefreshInterval = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
		{
			name: "duplicate view",
			modify: func(c *Config) {
				c.Views = []ViewConfig{{ID: "v1", Text: "T1"}, {ID: "v1", Text: "T2"}}
			},
			wantErr: true,
		},
		{
			name:    "view without text",
			modify:  func(c *Config) { c.Views = []ViewConfig{{ID: "v1"}} },
			wantErr: true,
		},
		{
			name:    "ontology glob",
			modify:  func(c *Config) { c.Sources.Ontologies = []string{"ontologies/**/*.json"} },
			wantErr: false,
		},
		{
			name:    "malformed ontology glob",
			modify:  func(c *Config) { c.Sources.Ontologies = []string{"ontologies/[a-.json"} },
			wantErr: true,
		},
		{
			name:    "empty ontology location",
			modify:  func(c *Config) { c.Sources.Ontologies = []string{""} },
			wantErr: true,
		},
		{
			name:    "text without location",
			modify:  func(c *Config) { c.Sources.Texts = []TextConfig{{ID: "T1"}} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  addr: "127.0.0.1:9000"
  transports: [websocket, nats]
sources:
  annotations: "https://example.org/annotations.json"
  ontologies:
    - "/data/ontologies/**/*.json"
  texts:
    - id: T1
      location: "https://example.org/t1.html"
      inline: true
views:
  - id: left
    text: T1
fetch:
  timeout: 10s
  refresh_interval: 1m
nats:
  url: "nats://test:4222"
sync:
  follow_scroll: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("expected addr 127.0.0.1:9000, got %s", cfg.Server.Addr)
	}
	if len(cfg.Server.Transports) != 2 {
		t.Errorf("expected 2 transports, got %d", len(cfg.Server.Transports))
	}
	if len(cfg.Sources.Ontologies) != 1 {
		t.Errorf("expected 1 ontology location, got %d", len(cfg.Sources.Ontologies))
	}
	if len(cfg.Sources.Texts) != 1 || !cfg.Sources.Texts[0].Inline {
		t.Errorf("expected one inline text, got %+v", cfg.Sources.Texts)
	}
	if cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.RefreshInterval != time.Minute {
		t.Errorf("expected refresh 1m, got %v", cfg.Fetch.RefreshInterval)
	}
	if cfg.FollowScroll() {
		t.Error("expected follow_scroll false")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Server: ServerConfig{
			Addr: ":9999",
		},
		NATS: NATSConfig{
			URL: "nats://remote:4222",
		},
		Sync: SyncConfig{
			FollowScroll: boolPtr(false),
		},
	}

	base.Merge(override)

	if base.Server.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %s", base.Server.Addr)
	}
	// Timeout should remain from base since override didn't set it
	if base.Server.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("expected read header timeout to remain default, got %v", base.Server.ReadHeaderTimeout)
	}
	if base.NATS.Embedded {
		t.Error("expected external NATS after URL override")
	}
	if base.FollowScroll() {
		t.Error("expected follow_scroll false after merge")
	}

	// A later layer that leaves follow_scroll unset keeps the earlier value
	base.Merge(&Config{Server: ServerConfig{Addr: ":1"}})
	if base.FollowScroll() {
		t.Error("expected follow_scroll to stay false")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":1234"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Server.Addr != ":1234" {
		t.Errorf("expected addr :1234, got %s", loaded.Server.Addr)
	}
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfigPath, "")

	user := &Config{Server: ServerConfig{Addr: ":1111"}, Style: StyleConfig{DefaultColor: "orange"}}
	if err := user.SaveToFile(filepath.Join(home, UserConfigDir, UserConfigFile)); err != nil {
		t.Fatalf("save user config: %v", err)
	}

	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte("server:\n  addr: \":2222\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	loader := NewLoader(nil)

	t.Run("project overrides user", func(t *testing.T) {
		cfg, err := loader.Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Addr != ":2222" {
			t.Errorf("expected project addr :2222, got %s", cfg.Server.Addr)
		}
		if cfg.Style.DefaultColor != "orange" {
			t.Errorf("expected user color orange, got %s", cfg.Style.DefaultColor)
		}
	})

	t.Run("explicit overrides project", func(t *testing.T) {
		explicit := filepath.Join(t.TempDir(), "explicit.yaml")
		if err := os.WriteFile(explicit, []byte("server:\n  addr: \":3333\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := loader.Load(explicit)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Addr != ":3333" {
			t.Errorf("expected explicit addr :3333, got %s", cfg.Server.Addr)
		}
	})

	t.Run("resolve reports applied layers", func(t *testing.T) {
		_, applied, err := loader.Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		var names []string
		for _, layer := range applied {
			names = append(names, layer.Name)
		}
		if strings.Join(names, ",") != "user,project" {
			t.Fatalf("expected layers user,project, got %v", names)
		}
		if want := filepath.Join(project, ProjectConfigFile); applied[1].Path != want {
			t.Errorf("expected nearest project file %s, got %s", want, applied[1].Path)
		}
	})

	t.Run("env file sits between project and explicit", func(t *testing.T) {
		env := filepath.Join(t.TempDir(), "env.yaml")
		if err := os.WriteFile(env, []byte("server:\n  addr: \":4444\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvConfigPath, env)

		cfg, err := loader.Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Addr != ":4444" {
			t.Errorf("expected env addr :4444, got %s", cfg.Server.Addr)
		}

		explicit := filepath.Join(t.TempDir(), "explicit.yaml")
		if err := os.WriteFile(explicit, []byte("server:\n  addr: \":5555\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err = loader.Load(explicit)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Addr != ":5555" {
			t.Errorf("expected explicit addr :5555, got %s", cfg.Server.Addr)
		}

		t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := loader.Load(""); err == nil {
			t.Error("expected error for missing env config")
		}
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		if _, err := loader.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("invalid result fails", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(bad, []byte("server:\n  transports: [smoke-signal]\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := loader.Load(bad); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := NewLoader(nil).EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load created config: %v", err)
	}
	if loaded.Server.Addr != ":8787" {
		t.Errorf("expected default addr, got %s", loaded.Server.Addr)
	}
}
