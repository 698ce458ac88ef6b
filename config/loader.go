package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is looked up in the working directory and its parents.
	ProjectConfigFile = "semsynopsis.yaml"
	// UserConfigDir is relative to the home directory.
	UserConfigDir = ".config/semsynopsis"
	// UserConfigFile is the file name inside UserConfigDir.
	UserConfigFile = "config.yaml"
	// EnvConfigPath names an extra config file applied after the project file.
	EnvConfigPath = "SEMSYNOPSIS_CONFIG"
)

// Layer is one config file in the precedence chain.
type Layer struct {
	Name string
	Path string
	// Required layers fail the load when missing or unreadable. Optional
	// layers are skipped when missing and logged when broken.
	Required bool
}

// Loader resolves the effective coordinator configuration.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Layers lists the config files Load considers, lowest precedence first:
// the user file, the nearest project file, $SEMSYNOPSIS_CONFIG and
// explicitPath. Layers without a path are omitted.
func (l *Loader) Layers(explicitPath string) []Layer {
	candidates := []Layer{
		{Name: "user", Path: l.UserConfigPath()},
		{Name: "project", Path: nearest(ProjectConfigFile)},
		{Name: "env", Path: os.Getenv(EnvConfigPath), Required: true},
		{Name: "explicit", Path: explicitPath, Required: true},
	}
	layers := candidates[:0]
	for _, layer := range candidates {
		if layer.Path != "" {
			layers = append(layers, layer)
		}
	}
	return layers
}

// Load merges every layer over DefaultConfig and validates the result.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	cfg, _, err := l.Resolve(explicitPath)
	return cfg, err
}

// Resolve is Load that also reports the layers that were applied.
func (l *Loader) Resolve(explicitPath string) (*Config, []Layer, error) {
	cfg := DefaultConfig()
	var applied []Layer

	for _, layer := range l.Layers(explicitPath) {
		overlay, err := LoadFromFile(layer.Path)
		switch {
		case err == nil:
			cfg.Merge(overlay)
			applied = append(applied, layer)
			l.logger.Debug("Applied config layer", "layer", layer.Name, "path", layer.Path)
		case layer.Required:
			return nil, nil, fmt.Errorf("%s config: %w", layer.Name, err)
		case !errors.Is(err, fs.ErrNotExist):
			l.logger.Warn("Skipping broken config layer", "layer", layer.Name, "path", layer.Path, "error", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, applied, nil
}

// EnsureUserConfig writes DefaultConfig to the user config path unless a file
// is already there. It returns the path.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.UserConfigPath()
	if path == "" {
		return "", errors.New("cannot determine home directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", "path", path)
	return path, nil
}

// UserConfigPath returns ~/.config/semsynopsis/config.yaml, or "" when the
// home directory is unknown.
func (l *Loader) UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// nearest returns the closest file called name in the working directory or
// one of its parents.
func nearest(name string) string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for parent := filepath.Dir(dir); ; dir, parent = parent, filepath.Dir(parent) {
		if candidate := filepath.Join(dir, name); isFile(candidate) {
			return candidate
		}
		if parent == dir {
			return ""
		}
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
