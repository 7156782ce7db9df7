package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/config"
	"github.com/guiyumin/socialdl/internal/core/logging"
	"github.com/guiyumin/socialdl/internal/server"
)

var (
	servePort   int
	serveDaemon bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API that resolves social media post URLs.

Examples:
  socialdl serve              # Start server on port 5000
  socialdl serve -p 9000      # Start server on port 9000
  socialdl serve -d           # Start server as background daemon
  socialdl serve stop         # Stop the daemon
  socialdl serve status       # Show daemon status

API Endpoints:
  GET /                       # API information
  GET /health                 # Health check
  GET /api/download?url=      # Resolve any supported URL
  GET /api/{platform}?url=    # Resolve a URL for one platform
  GET /api/platforms          # Supported platforms
  GET /api/stats              # Request counters`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			switch args[0] {
			case "stop":
				return stopDaemon(newDaemonFiles(), os.Stdout)
			case "status":
				return daemonStatus(newDaemonFiles(), os.Stdout)
			default:
				return fmt.Errorf("unknown serve subcommand %q", args[0])
			}
		}
		return runServe()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP listen port (default: 5000)")
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "run as background daemon")

	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// flag > env > config > default
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	if serveDaemon {
		return startDaemon(newDaemonFiles(), cfg.Server.Port, os.Stdout)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	return runServer(cfg, log)
}

func runServer(cfg *config.Config, log *zap.Logger) error {
	srv, err := server.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	return srv.Start()
}
