package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes, per SPEC_FULL.md §6.
const (
	ExitCodeSuccess       = 0
	ExitCodeError         = 1
	ExitCodeConfigInvalid = 2
	ExitCodePortInUse     = 3
)

// rootCmd is the base command; `serve` runs by default when no subcommand
// is given.
var rootCmd = &cobra.Command{
	Use:   "mcp-portal",
	Short: "Aggregate MCP servers into a single unified endpoint",
	Long: `mcp-portal discovers MCP server declarations across IDE configuration
locations (Cursor, VSCode, Claude Desktop, Windsurf, Continue, and its own
manual source), keeps a live session with each, and re-serves their tools
and resources as one unified MCP endpoint plus a REST/SSE management
surface.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// SetVersion sets the version reported by `mcp-portal version` / `--version`.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and translates a returned exitError into
// the matching process exit code.
func Execute() {
	rootCmd.SetVersionTemplate("mcp-portal version {{.Version}}\n")

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitError pairs an error with the exit code it should produce, so
// subcommands can signal config_invalid / port_in_use without the root
// command parsing error strings.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newExitError(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitCodeError
}
