package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a settings file. An empty file is valid.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes settings. Unknown keys are rejected so typos surface.
func Parse(path string, data []byte) (*Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	if errs := Validate(&s); len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}
	return &s, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings %s:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

// Validate checks settings for semantic correctness and returns every
// problem found.
func Validate(s *Settings) []string {
	var errs []string

	if s.Concurrency < 0 {
		errs = append(errs, fmt.Sprintf("concurrency must not be negative, got %d", s.Concurrency))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("timeout must not be negative, got %s", s.Timeout))
	}
	if s.Retries != nil && *s.Retries < 0 {
		errs = append(errs, fmt.Sprintf("retries must not be negative, got %d", *s.Retries))
	}
	if s.MaxFileSize < 0 {
		errs = append(errs, fmt.Sprintf("max_file_size must not be negative, got %d", s.MaxFileSize))
	}
	if s.RegistryURL != "" {
		u, err := url.Parse(s.RegistryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("registry_url '%s' must be an absolute http(s) URL", s.RegistryURL))
		}
	}

	names := make(map[string]bool)
	for i, out := range s.Outputs {
		prefix := fmt.Sprintf("output[%d]", i)
		if out.Name != "" {
			prefix = fmt.Sprintf("output '%s'", out.Name)
		}

		switch {
		case out.Name == "":
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		case strings.ContainsAny(out.Name, `/\`):
			errs = append(errs, fmt.Sprintf("%s: name must not contain path separators", prefix))
		case names[out.Name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate output name", prefix))
		default:
			names[out.Name] = true
		}
		if out.Destination == "" {
			errs = append(errs, fmt.Sprintf("%s: 'destination' is required", prefix))
		}
	}

	return errs
}
