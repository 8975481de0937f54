// Package config loads niter's user settings: layered YAML files for
// system, user, and project, merged field by field.
package config

import "time"

// Settings is the contents of a config.yaml or .niter.yaml file. Zero
// values mean "not set" so layers can be merged; pointer fields are used
// where the zero value is meaningful.
type Settings struct {
	Concurrency int           `yaml:"concurrency,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Retries     *int          `yaml:"retries,omitempty"`
	MaxFileSize int64         `yaml:"max_file_size,omitempty"` // bytes
	RegistryURL string        `yaml:"registry_url,omitempty"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
	CacheDir    string        `yaml:"cache_dir,omitempty"`
	NoCache     *bool         `yaml:"no_cache,omitempty"`
	FailFast    *bool         `yaml:"fail_fast,omitempty"`
	Outputs     []Output      `yaml:"outputs,omitempty"`
}

// Output adds a build output or moves a built-in one.
type Output struct {
	Name        string `yaml:"name"`
	Destination string `yaml:"destination"` // relative to the project root
}

// Defaults used when no layer sets a value.
const (
	DefaultConcurrency = 8
	DefaultTimeout     = 60 * time.Second
	DefaultRetries     = 3
	DefaultMaxFileSize = 512 << 20
)

// Resolved is Settings with every default applied.
type Resolved struct {
	Concurrency int
	Timeout     time.Duration
	Retries     int
	MaxFileSize int64
	RegistryURL string // empty means the public registry
	UserAgent   string
	CacheDir    string // empty means the platform cache directory
	NoCache     bool
	FailFast    bool
	Outputs     []Output
}

// Resolve applies defaults to unset fields.
func (s *Settings) Resolve() Resolved {
	r := Resolved{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		MaxFileSize: DefaultMaxFileSize,
	}
	if s == nil {
		return r
	}
	if s.Concurrency > 0 {
		r.Concurrency = s.Concurrency
	}
	if s.Timeout > 0 {
		r.Timeout = s.Timeout
	}
	if s.Retries != nil {
		r.Retries = *s.Retries
	}
	if s.MaxFileSize > 0 {
		r.MaxFileSize = s.MaxFileSize
	}
	r.RegistryURL = s.RegistryURL
	r.UserAgent = s.UserAgent
	r.CacheDir = s.CacheDir
	r.NoCache = s.NoCache != nil && *s.NoCache
	r.FailFast = s.FailFast != nil && *s.FailFast
	r.Outputs = s.Outputs
	return r
}
