package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niterpack/niter/pkg/niter"
)

var checkCmd = &cobra.Command{
	Use:   "check [output]",
	Short: "Verify that an output matches the modpack",
	Long: `Resolves every mod and compares the output's mods directory against the
result without changing anything. Exit 0 when a build would do nothing;
exit non-zero on drift. Suitable for CI pipelines.`,
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

		result, err := client.Check(cmd.Context(), output)
		if err != nil {
			return err
		}

		if result.Clean {
			info("%s '%s' matches the modpack.", SuccessStyle.Render("OK"), output)
			return nil
		}

		for _, d := range result.Drift {
			info("  %s %s", renderAction(d.Action.String()), d.Filename)
			if d.Local != "" {
				detail("local:    %s", d.Local)
			}
			if d.Artifact != nil && d.Artifact.Hash != "" {
				detail("expected: %s", d.Artifact.Hash)
			}
		}
		return fmt.Errorf("check failed: %s out of sync", plural(len(result.Drift), "file"))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
