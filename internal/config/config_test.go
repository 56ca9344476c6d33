package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warship.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
pipeline:
  name: demo
  store:
    base_url: http://nexus.local:8081
    repository: maven-releases
    group: com/example
    artifact: app
    username_env: NEXUS_USER
    password_env: NEXUS_PASS
  target:
    base_url: http://tomcat.local:8080/manager/text
    app_path: /app
    username_env: TOMCAT_USER
    password_env: TOMCAT_PASS
  verify:
    url: http://tomcat.local:8080/app/
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := cfg.Pipeline
	if p.Build.Command != "mvn -B clean package" {
		t.Errorf("Build.Command = %q, want default", p.Build.Command)
	}
	if p.Build.ArtifactDir != "target" {
		t.Errorf("Build.ArtifactDir = %q, want %q", p.Build.ArtifactDir, "target")
	}
	if p.Build.ArtifactPattern != "*.war" {
		t.Errorf("Build.ArtifactPattern = %q, want %q", p.Build.ArtifactPattern, "*.war")
	}
	if p.Store.Extension != "war" {
		t.Errorf("Store.Extension = %q, want %q", p.Store.Extension, "war")
	}
	if p.Quality.Gate != "warn" {
		t.Errorf("Quality.Gate = %q, want %q", p.Quality.Gate, "warn")
	}
	if p.Verify.Grace != "15s" {
		t.Errorf("Verify.Grace = %q, want %q", p.Verify.Grace, "15s")
	}
	if p.ScratchDir == "" {
		t.Error("ScratchDir should have a default")
	}
}

func TestLoadResolvesCredentials(t *testing.T) {
	t.Setenv("NEXUS_USER", "publisher")
	t.Setenv("NEXUS_PASS", "hunter2")
	t.Setenv("TOMCAT_USER", "manager")
	t.Setenv("TOMCAT_PASS", "s3cret")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Pipeline.Store.Credential.Username; got != "publisher" {
		t.Errorf("Store credential username = %q, want %q", got, "publisher")
	}
	if got := cfg.Pipeline.Target.Credential.Password; got != "s3cret" {
		t.Errorf("Target credential password = %q, want %q", got, "s3cret")
	}
}

func TestCredentialRedaction(t *testing.T) {
	c := Credential{Username: "admin", Password: "topsecret"}

	for _, s := range []string{c.String(), c.GoString()} {
		if strings.Contains(s, "admin") || strings.Contains(s, "topsecret") {
			t.Errorf("credential leaked through formatting: %q", s)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateOK(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate returned %d errors for valid config: %v", len(errs), errs)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "missing name",
			mutate: func(c *Config) { c.Pipeline.Name = "" },
			field:  "pipeline.name",
		},
		{
			name:   "missing store base URL",
			mutate: func(c *Config) { c.Pipeline.Store.BaseURL = "" },
			field:  "pipeline.store.base_url",
		},
		{
			name:   "dotted group",
			mutate: func(c *Config) { c.Pipeline.Store.Group = "com.example" },
			field:  "pipeline.store.group",
		},
		{
			name:   "app path without slash",
			mutate: func(c *Config) { c.Pipeline.Target.AppPath = "app" },
			field:  "pipeline.target.app_path",
		},
		{
			name:   "bad gate policy",
			mutate: func(c *Config) { c.Pipeline.Quality.Gate = "maybe" },
			field:  "pipeline.quality.gate",
		},
		{
			name:   "bad grace duration",
			mutate: func(c *Config) { c.Pipeline.Verify.Grace = "soonish" },
			field:  "pipeline.verify.grace",
		},
		{
			name: "gate host without project key",
			mutate: func(c *Config) {
				c.Pipeline.Quality.HostURL = "http://sonar.local"
				c.Pipeline.Quality.ProjectKey = ""
			},
			field: "pipeline.quality.project_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)

			errs := Validate(cfg)
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected validation error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   string
		def  time.Duration
		want time.Duration
	}{
		{"30s", time.Minute, 30 * time.Second},
		{"", time.Minute, time.Minute},
		{"garbage", time.Minute, time.Minute},
		{"2m", 0, 2 * time.Minute},
	}
	for _, tt := range tests {
		if got := Duration(tt.in, tt.def); got != tt.want {
			t.Errorf("Duration(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}
