package config

import "time"

// Config is the top-level configuration structure parsed from warship YAML.
type Config struct {
	Pipeline Pipeline `yaml:"pipeline"`
}

// Pipeline defines the full deployment pipeline: metadata, collaborators,
// and the deployment target.
type Pipeline struct {
	Name       string  `yaml:"name"`
	ScratchDir string  `yaml:"scratch_dir"`
	Quality    Quality `yaml:"quality"`
	Build      Build   `yaml:"build"`
	Store      Store   `yaml:"store"`
	Target     Target  `yaml:"target"`
	Verify     Verify  `yaml:"verify"`
}

// Credential is a resolved username/password pair. It is deliberately opaque:
// both String and GoString redact, so a credential cannot leak through
// logging or %v/%#v formatting.
type Credential struct {
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

func (c Credential) String() string   { return "<redacted>" }
func (c Credential) GoString() string { return "config.Credential{<redacted>}" }

// IsZero reports whether the credential is unset.
func (c Credential) IsZero() bool { return c.Username == "" && c.Password == "" }

// Quality configures the static-analysis collaborator and its gate policy.
type Quality struct {
	Command    string `yaml:"command"`
	HostURL    string `yaml:"host_url"`
	ProjectKey string `yaml:"project_key"`
	TokenEnv   string `yaml:"token_env"`
	Gate       string `yaml:"gate"` // "fatal", "warn", or "skip"
	Timeout    string `yaml:"timeout"`

	Token string `yaml:"-"` // resolved from TokenEnv, never serialized
}

// Build configures the external build collaborator.
type Build struct {
	Command         string `yaml:"command"`
	Dir             string `yaml:"dir"`
	ArtifactDir     string `yaml:"artifact_dir"`
	ArtifactPattern string `yaml:"artifact_pattern"`
	Timeout         string `yaml:"timeout"`
}

// Store configures the artifact store (Nexus-style REST API).
type Store struct {
	BaseURL     string `yaml:"base_url"`
	Repository  string `yaml:"repository"`
	Group       string `yaml:"group"` // slash-separated, e.g. "com/example"
	Artifact    string `yaml:"artifact"`
	Extension   string `yaml:"extension"`
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`

	Credential Credential `yaml:"-"` // resolved from the env vars above
}

// Target configures the application server (Tomcat-style manager API).
type Target struct {
	BaseURL     string `yaml:"base_url"` // manager text API base, e.g. http://host:8080/manager/text
	AppPath     string `yaml:"app_path"` // context path, e.g. "/app"
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`

	Credential Credential `yaml:"-"`
}

// Verify configures the post-deploy health probe.
type Verify struct {
	URL     string `yaml:"url"`
	Grace   string `yaml:"grace"`
	Timeout string `yaml:"timeout"`
}

// Duration parses s as a duration, falling back to def when s is empty or
// malformed. Config durations are kept as strings so the YAML stays readable.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
