package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the modpack's mods and build outputs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		p, err := client.Project()
		if err != nil {
			return err
		}

		m := p.Manifest
		info("%s %s", TitleStyle.Render(m.Name), m.Version)
		if m.Loader != "" || m.GameVersion != "" {
			info("%s", SubtitleStyle.Render("minecraft "+m.GameVersion+" "+m.Loader+" "+m.LoaderVersion))
		}
		info("")

		for _, mod := range p.Mods {
			info("  %-24s %s", mod.Name, mod.Source)
			if mod.File != "" {
				detail("  file: %s", mod.File)
			}
		}
		info("")
		info("%s", plural(len(p.Mods), "mod"))

		for _, name := range client.Outputs() {
			out, err := client.Output(name)
			if err != nil {
				return err
			}
			detail("output %-10s %s", name, out.ModsDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
