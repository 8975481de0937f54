package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/niterpack/niter/internal/config"
	"github.com/niterpack/niter/pkg/niter"
)

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// envKeys are the settings that can be overridden with NITER_<KEY>.
var envKeys = []string{
	"concurrency",
	"timeout",
	"retries",
	"max_file_size",
	"registry_url",
	"user_agent",
	"cache_dir",
	"no_cache",
	"fail_fast",
}

// newLogger returns the logger handed to the library. Library progress is
// shown only with --verbose; warnings are always shown unless --quiet.
func newLogger() *log.Logger {
	level := log.WarnLevel
	switch {
	case verbose:
		level = log.DebugLevel
	case quiet:
		level = log.ErrorLevel
	}
	return log.NewWithOptions(stderr, log.Options{
		Prefix: "niter",
		Level:  level,
	})
}

// envSettings reads the NITER_* environment overrides into a settings layer.
func envSettings() (*config.Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("NITER")
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	s := &config.Settings{}
	if v.IsSet("concurrency") {
		s.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("timeout") {
		s.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("retries") {
		n := v.GetInt("retries")
		s.Retries = &n
	}
	if v.IsSet("max_file_size") {
		s.MaxFileSize = v.GetInt64("max_file_size")
	}
	s.RegistryURL = v.GetString("registry_url")
	s.UserAgent = v.GetString("user_agent")
	s.CacheDir = v.GetString("cache_dir")
	if v.IsSet("no_cache") {
		b := v.GetBool("no_cache")
		s.NoCache = &b
	}
	if v.IsSet("fail_fast") {
		b := v.GetBool("fail_fast")
		s.FailFast = &b
	}

	if errs := config.Validate(s); len(errs) > 0 {
		return nil, &config.ValidationError{Path: "environment", Errors: errs}
	}
	return s, nil
}

// loadSettings merges the settings files with the environment layer.
func loadSettings() (*config.Settings, error) {
	files, layers, err := config.LoadLayered(config.DiscoverOptions{
		ProjectDir: projectDir,
		NoInherit:  noInherit || config.EnvNoInherit(),
	})
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		if l.Loaded {
			detail("settings: %s", l.Path)
		}
	}

	env, err := envSettings()
	if err != nil {
		return nil, err
	}
	return config.Merge(files, env), nil
}

// newClient creates a library client for the --dir project.
func newClient() (*niter.Client, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	opts := niter.Options{
		ProjectDir: projectDir,
		Settings:   settings,
		Logger:     newLogger(),
		Metrics:    collector,
	}
	if tracing != nil {
		opts.Tracer = tracing.Tracer
	}
	return niter.New(opts)
}

// humanSize formats a byte count for display.
func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// plural returns "1 mod" or "2 mods".
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Fprintf(stdout, "  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintln(stderr, ErrorStyle.Render("error:")+" "+strings.TrimSpace(fmt.Sprintf(format, args...)))
}
