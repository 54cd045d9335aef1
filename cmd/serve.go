// cmd/serve.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/internal/observability"
	"github.com/hexblade/pagepilot/internal/server"
)

// serveCmd exposes the coordinator over HTTP and WebSocket for the browser
// extension UI.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent API over HTTP and stream updates over WebSocket.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		application := newApp(appCfg, logger)
		defer application.shutdown()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(appCfg.Server, application.coord, logger)
		logger.Info("Serving agent API.", zap.String("addr", appCfg.Server.Addr))
		if err := srv.Start(ctx); err != nil {
			return err
		}
		logger.Info("Server stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
