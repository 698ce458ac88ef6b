// Package config provides configuration loading and management for semsynopsis.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Transport names accepted in server.transports.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config represents the complete semsynopsis configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sources SourcesConfig `yaml:"sources"`
	Views   []ViewConfig  `yaml:"views"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Watch   WatchConfig   `yaml:"watch"`
	NATS    NATSConfig    `yaml:"nats"`
	Style   StyleConfig   `yaml:"style"`
	Sync    SyncConfig    `yaml:"sync"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	// Addr is the listen address (default: :8787)
	Addr string `yaml:"addr"`
	// ReadHeaderTimeout bounds how long a client may take to send headers
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	// Transports lists the enabled view transports (websocket, nats)
	Transports []string `yaml:"transports"`
}

// SourcesConfig lists the retrieval locations of the synopsis inputs.
// A location is an http(s) URL, a file:// URL or a filesystem path.
type SourcesConfig struct {
	Annotations string `yaml:"annotations"`
	// Ontologies may contain doublestar glob patterns
	Ontologies       []string     `yaml:"ontologies"`
	RegexAlignment   string       `yaml:"regex_alignment"`
	MappingAlignment string       `yaml:"mapping_alignment"`
	Texts            []TextConfig `yaml:"texts"`
}

// TextConfig declares a text loaded by the coordinator
type TextConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
	// Inline sends the raw content to bound views
	Inline bool `yaml:"inline"`
}

// ViewConfig pre-binds a view id to a text
type ViewConfig struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
	// Segments overrides the annotations-per-segment location
	Segments string `yaml:"segments"`
}

// FetchConfig configures retrieval of remote sources
type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxContentSize int64         `yaml:"max_content_size"`
	UserAgent      string        `yaml:"user_agent"`
	// RefreshInterval revalidates http sources periodically (0 = never)
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// WatchConfig configures reloading of file-backed sources
type WatchConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// KV mirrors session positions into a JetStream KV bucket
	KV bool `yaml:"kv"`
}

// StyleConfig configures style resolution and selection overlays
type StyleConfig struct {
	DefaultColor string `yaml:"default_color"`
	Property     string `yaml:"property"`
	SelectedCSS  string `yaml:"selected_css"`
	TransientCSS string `yaml:"transient_css"`
}

// SyncConfig configures cross-view synchronization
type SyncConfig struct {
	// FollowScroll synchronizes other views on every scroll (default: true)
	FollowScroll *bool `yaml:"follow_scroll"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8787",
			ReadHeaderTimeout: 10 * time.Second,
			Transports:        []string{TransportWebSocket},
		},
		Fetch: FetchConfig{
			Timeout:        30 * time.Second,
			MaxContentSize: 20 * 1024 * 1024,
			UserAgent:      "semsynopsis/1.0",
		},
		Watch: WatchConfig{
			Enabled:  boolPtr(true),
			Debounce: 500 * time.Millisecond,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Style: StyleConfig{
			DefaultColor: "yellow",
			Property:     "background-color",
			SelectedCSS:  "border: 1px solid red",
			TransientCSS: "background-color: silver",
		},
		Sync: SyncConfig{
			FollowScroll: boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// FollowScroll reports whether plain scrolls synchronize other views.
func (c *Config) FollowScroll() bool {
	return c.Sync.FollowScroll == nil || *c.Sync.FollowScroll
}

// WatchEnabled reports whether file sources are watched.
func (c *Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}

// TransportEnabled reports whether the named transport is enabled.
func (c *Config) TransportEnabled(name string) bool {
	return slices.Contains(c.Server.Transports, name)
}

// NeedsNATS reports whether a NATS connection is required.
func (c *Config) NeedsNATS() bool {
	return c.TransportEnabled(TransportNATS) || c.NATS.KV
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadHeaderTimeout < 0 {
		return fmt.Errorf("server.read_header_timeout must not be negative")
	}
	for _, name := range c.Server.Transports {
		if name != TransportWebSocket && name != TransportNATS {
			return fmt.Errorf("server.transports: unknown transport %q", name)
		}
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxContentSize <= 0 {
		return fmt.Errorf("fetch.max_content_size must be positive")
	}
	if c.Fetch.RefreshInterval < 0 {
		return fmt.Errorf("fetch.refresh_interval must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	for i, pattern := range c.Sources.Ontologies {
		if pattern == "" {
			return fmt.Errorf("sources.ontologies[%d]: empty location", i)
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return fmt.Errorf("sources.ontologies[%d]: invalid glob pattern %q", i, pattern)
		}
	}

	texts := make(map[string]bool, len(c.Sources.Texts))
	for i, t := range c.Sources.Texts {
		if t.ID == "" || t.Location == "" {
			return fmt.Errorf("sources.texts[%d]: id and location are required", i)
		}
		if texts[t.ID] {
			return fmt.Errorf("sources.texts[%d]: duplicate id %q", i, t.ID)
		}
		texts[t.ID] = true
	}

	views := make(map[string]bool, len(c.Views))
	for i, v := range c.Views {
		if v.ID == "" || v.Text == "" {
			return fmt.Errorf("views[%d]: id and text are required", i)
		}
		if views[v.ID] {
			return fmt.Errorf("views[%d]: duplicate id %q", i, v.ID)
		}
		views[v.ID] = true
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ReadHeaderTimeout != 0 {
		c.Server.ReadHeaderTimeout = other.Server.ReadHeaderTimeout
	}
	if len(other.Server.Transports) > 0 {
		c.Server.Transports = other.Server.Transports
	}

	// Sources
	if other.Sources.Annotations != "" {
		c.Sources.Annotations = other.Sources.Annotations
	}
	if len(other.Sources.Ontologies) > 0 {
		c.Sources.Ontologies = other.Sources.Ontologies
	}
	if other.Sources.RegexAlignment != "" {
		c.Sources.RegexAlignment = other.Sources.RegexAlignment
	}
	if other.Sources.MappingAlignment != "" {
		c.Sources.MappingAlignment = other.Sources.MappingAlignment
	}
	if len(other.Sources.Texts) > 0 {
		c.Sources.Texts = other.Sources.Texts
	}

	// Views
	if len(other.Views) > 0 {
		c.Views = other.Views
	}

	// Fetch
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.RefreshInterval != 0 {
		c.Fetch.RefreshInterval = other.Fetch.RefreshInterval
	}

	// Watch
	if other.Watch.Enabled != nil {
		c.Watch.Enabled = boolPtr(*other.Watch.Enabled)
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.KV {
		c.NATS.KV = true
	}

	// Style
	if other.Style.DefaultColor != "" {
		c.Style.DefaultColor = other.Style.DefaultColor
	}
	if other.Style.Property != "" {
		c.Style.Property = other.Style.Property
	}
	if other.Style.SelectedCSS != "" {
		c.Style.SelectedCSS = other.Style.SelectedCSS
	}
	if other.Style.TransientCSS != "" {
		c.Style.TransientCSS = other.Style.TransientCSS
	}

	// Sync
	if other.Sync.FollowScroll != nil {
		c.Sync.FollowScroll = boolPtr(*other.Sync.FollowScroll)
	}
}
