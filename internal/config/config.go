// Package config loads the voicepatch settings file. The two behavioral
// settings mirror the host's: enable_personalization gates the refresh
// controller entirely, verbose_personalization only raises log verbosity.
// voicepatch consumes these settings but does not own them: the enable and
// disable commands edit the file, and the watcher reloads it when anything
// else does.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the file name looked up under the user root.
const SettingsFile = "personalization.yaml"

// OutputDir is the folder artifacts are generated into, relative to the
// user root.
const OutputDir = "_personalizations"

// Config holds all voicepatch settings.
type Config struct {
	// Root is the Talon user directory all relative paths resolve against.
	Root string `yaml:"root"`

	// EnablePersonalization gates regeneration. When false every domain sits
	// in the Disabled state and artifacts are removed.
	EnablePersonalization bool `yaml:"enable_personalization"`

	// VerbosePersonalization adds per-directive trace detail to the log. It
	// has no behavioral effect.
	VerbosePersonalization bool `yaml:"verbose_personalization"`
}

// Default returns the built-in configuration for the given root.
func Default(root string) *Config {
	return &Config{Root: root}
}

// Path returns the settings file location under root.
func Path(root string) string {
	return filepath.Join(root, SettingsFile)
}

// Load reads the settings file under root, falling back to defaults when it
// does not exist, then applies environment overrides.
func Load(root string) (*Config, error) {
	cfg := Default(root)

	data, err := os.ReadFile(Path(root))
	switch {
	case os.IsNotExist(err):
		// No settings file yet; defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
	}

	if cfg.Root == "" {
		cfg.Root = root
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg to the settings file under cfg.Root.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Root, 0o755); err != nil {
		return err
	}
	return os.WriteFile(Path(c.Root), data, 0o644)
}

// applyEnvOverrides lets the environment win over the file, matching how the
// rest of the toolchain is driven in scripts. The root is deliberately not
// overridden here: the caller already chose it (an explicit --root must beat
// VOICEPATCH_ROOT, which only feeds the flag's default).
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VOICEPATCH_ENABLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EnablePersonalization = b
		}
	}
	if v := os.Getenv("VOICEPATCH_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.VerbosePersonalization = b
		}
	}
}

// ListControlDir returns the directory holding the list domain's control and
// aux files.
func (c *Config) ListControlDir() string {
	return filepath.Join(c.Root, "config", "list_personalizations")
}

// CommandControlDir returns the directory holding the command domain's
// control and aux files.
func (c *Config) CommandControlDir() string {
	return filepath.Join(c.Root, "config", "command_personalizations")
}

// OutDir returns the artifact output folder.
func (c *Config) OutDir() string {
	return filepath.Join(c.Root, OutputDir)
}

// StatePath returns the run-history database location.
func (c *Config) StatePath() string {
	return filepath.Join(c.OutDir(), "state.db")
}
