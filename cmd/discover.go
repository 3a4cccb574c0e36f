package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print discovered MCP server declarations and exit",
	Long: `Scans every known IDE configuration location, resolves name collisions
by source precedence (manual > cursor > vscode > claude > windsurf >
continue), and prints the resulting server list without starting any
sessions.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	application, err := newConfigApp()
	if err != nil {
		return err
	}

	decls, dropped, err := application.Discover()
	if err != nil {
		return newExitError(ExitCodeConfigInvalid, err)
	}

	out := cmd.OutOrStdout()
	for _, d := range decls {
		target := d.URL
		if target == "" {
			target = d.Command
		}
		fmt.Fprintf(out, "%-20s %-10s %-16s %s\n", d.Name, d.Source, d.TransportHint, target)
	}
	for _, d := range dropped {
		fmt.Fprintf(out, "# duplicate %q dropped: %s loses to %s\n", d.Name, d.DroppedSource, d.WinningSource)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
