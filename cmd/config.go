package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcpportal/gateway/internal/app"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or replace the gateway's own (manual) server declarations",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the manual source document as JSON",
	Args:  cobra.NoArgs,
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set PATH",
	Short: "Replace the manual source document from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSet,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	application, err := newConfigApp()
	if err != nil {
		return err
	}
	doc, err := application.ConfigGet()
	if err != nil {
		return newExitError(ExitCodeConfigInvalid, err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	application, err := newConfigApp()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return newExitError(ExitCodeConfigInvalid, fmt.Errorf("reading %s: %w", args[0], err))
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return newExitError(ExitCodeConfigInvalid, fmt.Errorf("parsing %s: %w", args[0], err))
	}

	result, dropped, err := application.ConfigSet(doc)
	if err != nil {
		return newExitError(ExitCodeConfigInvalid, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "added=%d changed=%d removed=%d\n", len(result.Added), len(result.Changed), len(result.Removed))
	for _, d := range dropped {
		fmt.Fprintf(out, "# duplicate %q dropped: %s loses to %s\n", d.Name, d.DroppedSource, d.WinningSource)
	}
	return nil
}

// newConfigApp builds an Application wired for a one-shot CLI operation; it
// never calls Run, so no listener is opened and no sessions are started.
func newConfigApp() (*app.Application, error) {
	cfg := app.NewConfig()
	application, err := app.NewApplication(cfg)
	if err != nil {
		return nil, newExitError(ExitCodeConfigInvalid, fmt.Errorf("failed to initialize: %w", err))
	}
	return application, nil
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
