package cmd

import (
	"github.com/spf13/cobra"
)

var addVersion string

var addCmd = &cobra.Command{
	Use:   "add <mod>",
	Short: "Add a mod from Modrinth",
	Long: `Looks up a Modrinth project by slug or id and writes mods/<slug>.toml.

Without --version the newest version matching the manifest's loader and
Minecraft version is used. --version accepts a version id or a version
number such as "mc1.20.1-0.5.3".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		mod, err := client.Add(cmd.Context(), args[0], addVersion)
		if err != nil {
			return err
		}
		info("%s %s (%s)", SuccessStyle.Render("Added"), mod.Name, mod.Source.Version)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addVersion, "version", "", "version id or version number")
	rootCmd.AddCommand(addCmd)
}
