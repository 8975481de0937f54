// Package cmd contains the niter command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/niterpack/niter/internal/metrics"
	"github.com/niterpack/niter/internal/observability/otel"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	projectDir   string
	verbose      bool
	quiet        bool
	noInherit    bool
	metricsFile  string
	otelEnabled  bool
	otelEndpoint string
)

// Per-invocation state set up by the root command.
var (
	collector *metrics.Collector
	tracing   *otel.Handle
)

var rootCmd = &cobra.Command{
	Use:   "niter",
	Short: "Modpack manager for Minecraft",
	Long: TitleStyle.Render("niter") + SubtitleStyle.Render(" - a modpack manager for Minecraft") + `

A modpack is a niter.toml manifest plus one TOML file per mod under mods/.
Mods come from a direct download URL or from the Modrinth registry.
'niter build' resolves every mod and makes an output directory hold exactly
the resolved files, downloading, replacing, and deleting as needed.

` + SubtitleStyle.Render("Examples:") + `
  niter init                 Create a modpack in the current directory
  niter add sodium           Add the newest matching version of a mod
  niter build                Build the instance output
  niter build modrinth       Build and export a .mrpack
  niter check server         Report drift without changing anything`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("niter %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "modpack directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "ignore system and user settings")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	rootCmd.PersistentFlags().BoolVar(&otelEnabled, "otel", false, "export traces over OTLP/HTTP")
	rootCmd.PersistentFlags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default $OTEL_EXPORTER_OTLP_ENDPOINT or http://localhost:4318)")

	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if metricsFile != "" {
		collector = metrics.New()
	}

	cfg := otel.DefaultConfig()
	cfg.Enabled = otelEnabled
	cfg.Endpoint = otelEndpoint
	cfg.ServiceVersion = version
	h, err := otel.Init(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	tracing = h
	return nil
}

// teardown flushes traces and writes the metrics file. It runs after every
// command, including failed ones.
func teardown(ctx context.Context) error {
	defer func() {
		tracing = nil
		collector = nil
	}()
	if tracing != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			newLogger().Warn("flushing traces", "err", err)
		}
	}
	if collector != nil && metricsFile != "" {
		if err := collector.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func versionString() string {
	if version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Execute runs the root command.
func Execute() error {
	return execute(context.Background(), os.Args[1:])
}

func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if terr := teardown(ctx); terr != nil {
		errorf("%v", terr)
		return errors.Join(err, terr)
	}
	return err
}
