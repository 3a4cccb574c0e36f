package cmd

import (
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/mcpportal/gateway/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway (default command)",
	Long: `Starts the discovery scanner, the session supervisor and the unified
HTTP surface (REST, SSE events and the /api/v1/mcp endpoint). Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return newExitError(ExitCodeConfigInvalid, fmt.Errorf("failed to initialize gateway: %w", err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		var addrErr *net.OpError
		if errors.As(err, &addrErr) {
			return newExitError(ExitCodePortInUse, err)
		}
		return newExitError(ExitCodeError, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	// serve is also the default: `mcp-portal` with no subcommand behaves
	// like `mcp-portal serve`.
	rootCmd.RunE = runServe
	rootCmd.Args = cobra.ArbitraryArgs
}
