package cmd

import (
	"github.com/spf13/cobra"

	"github.com/niterpack/niter/pkg/niter"
)

var (
	initForce bool
	initName  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new modpack",
	Long: `Creates a niter.toml manifest in the --dir directory. The modpack is named
after the directory unless --name is given, and starts at version 0.1.0.

Use --force to overwrite an existing manifest.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := niter.Init(projectDir, initName, initForce)
		if err != nil {
			return err
		}

		info("%s modpack '%s'", SuccessStyle.Render("Created"), m.Name)
		info("")
		info("Next steps:")
		info("  1. Set [minecraft] loader and version in niter.toml")
		info("  2. Run 'niter add <mod>' to add mods from Modrinth")
		info("  3. Run 'niter build' to download them")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing manifest")
	initCmd.Flags().StringVar(&initName, "name", "", "modpack name (default: directory name)")
	rootCmd.AddCommand(initCmd)
}
