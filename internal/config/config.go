// Package config loads and saves the phi configuration file.
//
// The file lives at ~/.config/phi/config.toml. A .env file in the working
// directory is honored, and PHI_GITHUB_TOKEN overrides the stored token so
// the secret can stay out of the config file entirely.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvGitHubToken overrides the github_token config key when set.
const EnvGitHubToken = "PHI_GITHUB_TOKEN"

// EnvTogglToken overrides the toggl_token config key when set.
const EnvTogglToken = "PHI_TOGGL_TOKEN"

type Config struct {
	GitHubToken string   `toml:"github_token"`
	GitHubRepos []string `toml:"github_repos"`

	TogglToken          string   `toml:"toggl_token"`
	TogglHiddenProjects []string `toml:"toggl_hidden_projects"`
}

// HasToggl reports whether a Toggl token is configured.
func (c *Config) HasToggl() bool {
	return c.TogglToken != ""
}

// Dir returns the config directory (~/.config/phi).
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(base, "phi"), nil
}

// Path returns the config file path (~/.config/phi/config.toml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, creating a default one on first run, then
// applies environment overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at an explicit path; split out for tests.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := cfg.SaveTo(path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if token := os.Getenv(EnvGitHubToken); token != "" {
		cfg.GitHubToken = token
	}
	if token := os.Getenv(EnvTogglToken); token != "" {
		cfg.TogglToken = token
	}
	return cfg, nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
