package main

import (
	"github.com/spf13/cobra"

	_ "github.com/jackzampolin/leaf/docs/swagger"
	"github.com/jackzampolin/leaf/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the leaf server",
	Long: `Start the leaf HTTP server.

The server keeps one mirror registry for its lifetime, so mirror scores
learned by one reading session benefit every other session. Mirrors are
reloaded when the config file changes.

The server provides:
  - /health        - Basic server health check
  - /status        - Readiness, mirror and session counts
  - /api/mirrors   - Mirror ranking and stats
  - /api/sessions  - Reading sessions
  - /swagger       - API documentation

Examples:
  leaf serve                    # Start on default port 8080
  leaf serve --port 3000        # Start on custom port
  leaf serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfgMgr, err := loadConfig()
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config: 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config: 8080)")

	rootCmd.AddCommand(serveCmd)
}
