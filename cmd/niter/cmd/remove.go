package cmd

import (
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <mod>",
	Aliases: []string{"rm"},
	Short:   "Remove a mod",
	Long: `Deletes mods/<mod>.toml. Files already built are removed as orphans by the
next 'niter build'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.Remove(args[0]); err != nil {
			return err
		}
		info("%s %s", SuccessStyle.Render("Removed"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
