package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a pipeline configuration from the given YAML file path.
// After parsing, it applies defaults and resolves credentials from the
// environment variables the config names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	resolveCredentials(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./warship.yaml, ~/.warship/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"warship.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".warship", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no config found (searched: %v)", candidates)
}

// applyDefaults fills in values the config file may omit.
func applyDefaults(cfg *Config) {
	p := &cfg.Pipeline

	if p.ScratchDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			p.ScratchDir = filepath.Join(home, ".warship", "scratch")
		} else {
			p.ScratchDir = filepath.Join(os.TempDir(), "warship-scratch")
		}
	}

	if p.Build.Command == "" {
		p.Build.Command = "mvn -B clean package"
	}
	if p.Build.ArtifactDir == "" {
		p.Build.ArtifactDir = "target"
	}
	if p.Build.ArtifactPattern == "" {
		p.Build.ArtifactPattern = "*.war"
	}
	if p.Build.Timeout == "" {
		p.Build.Timeout = "10m"
	}

	if p.Store.Extension == "" {
		p.Store.Extension = "war"
	}

	if p.Quality.Gate == "" {
		p.Quality.Gate = "warn"
	}
	if p.Quality.Timeout == "" {
		p.Quality.Timeout = "5m"
	}

	if p.Verify.Grace == "" {
		p.Verify.Grace = "15s"
	}
	if p.Verify.Timeout == "" {
		p.Verify.Timeout = "30s"
	}
}

// resolveCredentials reads the env vars named by the config into the opaque
// Credential fields. Missing vars resolve to empty strings; Validate flags
// them when the component that needs them is configured.
func resolveCredentials(cfg *Config) {
	p := &cfg.Pipeline

	p.Store.Credential = Credential{
		Username: os.Getenv(p.Store.UsernameEnv),
		Password: os.Getenv(p.Store.PasswordEnv),
	}
	p.Target.Credential = Credential{
		Username: os.Getenv(p.Target.UsernameEnv),
		Password: os.Getenv(p.Target.PasswordEnv),
	}
	if p.Quality.TokenEnv != "" {
		p.Quality.Token = os.Getenv(p.Quality.TokenEnv)
	}
}
