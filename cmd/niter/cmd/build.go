package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niterpack/niter/pkg/niter"
)

var (
	buildDryRun   bool
	buildFailFast bool
	buildLocked   bool
)

var buildCmd = &cobra.Command{
	Use:   "build [output]",
	Short: "Resolve mods and synchronize an output directory",
	Long: `Resolves every mod to a downloadable file, then makes the output's mods
directory hold exactly those files: missing files are downloaded, files whose
hash changed are replaced, and files no mod asks for are deleted. Files whose
hash already matches are left alone.

Outputs: instance (default), server, modrinth (also writes a .mrpack), and any
defined under 'outputs' in settings.

If any mod fails to resolve nothing is changed. Otherwise the resolved files
are recorded in niter.lock; --locked builds from that record without asking
the registry.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := niter.OutputInstance
		if len(args) == 1 {
			output = args[0]
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		result, err := client.Build(cmd.Context(), output, niter.BuildOptions{
			DryRun:   buildDryRun,
			FailFast: buildFailFast,
			Locked:   buildLocked,
		})
		if result != nil && result.Sync != nil {
			printSync(result.Sync)
		}
		if err != nil {
			reportBuildErrors(err)
			return fmt.Errorf("build of '%s' failed", output)
		}

		if result.PackPath != "" {
			info("%s %s", SuccessStyle.Render("Exported"), result.PackPath)
		}
		return nil
	},
}

// printSync lists the plan and a one-line summary. The summary counts
// planned operations; failures are reported separately.
func printSync(res *niter.SyncResult) {
	if res.DryRun {
		info("Dry run, no files changed.")
	}

	var downloaded int64
	var fromCache int
	for _, e := range res.Plan.Entries {
		if e.Action == niter.ActionKeep {
			detail("%s %s", renderAction(e.Action.String()), e.Filename)
			continue
		}
		info("  %s %s", renderAction(e.Action.String()), e.Filename)
	}
	for _, op := range res.Done {
		downloaded += op.Size
		if op.FromCache {
			fromCache++
		}
	}

	heading := SuccessStyle.Render("Build complete")
	if len(res.Errors) > 0 {
		heading = ErrorStyle.Render(fmt.Sprintf("Build failed with %s", plural(len(res.Errors), "error")))
	}
	info("")
	info("%s: %d new, %d replaced, %d removed, %d unchanged.",
		heading,
		len(res.Plan.Filter(niter.ActionNew)),
		len(res.Plan.Filter(niter.ActionStale)),
		len(res.Plan.Filter(niter.ActionOrphan)),
		len(res.Plan.Filter(niter.ActionKeep)))
	if downloaded > 0 {
		detail("downloaded %s (%d from cache)", humanSize(downloaded), fromCache)
	}
}

// reportBuildErrors prints every joined error on its own line.
func reportBuildErrors(err error) {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			reportBuildErrors(e)
		}
		return
	}
	errorf("%s", err)
}

func init() {
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "show what would change without touching files")
	buildCmd.Flags().BoolVar(&buildFailFast, "fail-fast", false, "stop at the first failure")
	buildCmd.Flags().BoolVar(&buildLocked, "locked", false, "use niter.lock instead of the registry")
	rootCmd.AddCommand(buildCmd)
}
