package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// gatePolicies is the set of valid quality gate policies.
var gatePolicies = map[string]bool{
	"fatal": true,
	"warn":  true,
	"skip":  true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Pipeline

	if p.Name == "" {
		errs = append(errs, ValidationError{Field: "pipeline.name", Message: "is required"})
	}

	// Artifact store
	if p.Store.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "pipeline.store.base_url", Message: "is required"})
	}
	if p.Store.Repository == "" {
		errs = append(errs, ValidationError{Field: "pipeline.store.repository", Message: "is required"})
	}
	if p.Store.Artifact == "" {
		errs = append(errs, ValidationError{Field: "pipeline.store.artifact", Message: "is required"})
	}
	if strings.HasPrefix(p.Store.Group, "/") || strings.HasSuffix(p.Store.Group, "/") {
		errs = append(errs, ValidationError{
			Field:   "pipeline.store.group",
			Message: fmt.Sprintf("must not have leading or trailing slash, got %q", p.Store.Group),
		})
	}
	if strings.Contains(p.Store.Group, ".") {
		errs = append(errs, ValidationError{
			Field:   "pipeline.store.group",
			Message: fmt.Sprintf("must be slash-separated, got %q", p.Store.Group),
		})
	}

	// Deployment target
	if p.Target.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "pipeline.target.base_url", Message: "is required"})
	}
	if p.Target.AppPath == "" {
		errs = append(errs, ValidationError{Field: "pipeline.target.app_path", Message: "is required"})
	} else if !strings.HasPrefix(p.Target.AppPath, "/") {
		errs = append(errs, ValidationError{
			Field:   "pipeline.target.app_path",
			Message: fmt.Sprintf("must start with /, got %q", p.Target.AppPath),
		})
	}

	// Verification
	if p.Verify.URL == "" {
		errs = append(errs, ValidationError{Field: "pipeline.verify.url", Message: "is required"})
	}

	// Quality gate policy
	if !gatePolicies[p.Quality.Gate] {
		errs = append(errs, ValidationError{
			Field:   "pipeline.quality.gate",
			Message: fmt.Sprintf("unrecognized gate policy %q (want fatal, warn, or skip)", p.Quality.Gate),
		})
	}
	if p.Quality.Gate != "skip" && p.Quality.HostURL != "" && p.Quality.ProjectKey == "" {
		errs = append(errs, ValidationError{
			Field:   "pipeline.quality.project_key",
			Message: "is required when host_url is set",
		})
	}

	// Durations must parse when present
	for _, d := range []struct {
		field string
		value string
	}{
		{"pipeline.build.timeout", p.Build.Timeout},
		{"pipeline.quality.timeout", p.Quality.Timeout},
		{"pipeline.verify.grace", p.Verify.Grace},
		{"pipeline.verify.timeout", p.Verify.Timeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: fmt.Sprintf("invalid duration %q", d.value),
			})
		}
	}

	return errs
}
