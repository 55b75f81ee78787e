package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-improve/internal/audit"
	"github.com/ziadkadry99/auto-improve/internal/db"
	"github.com/ziadkadry99/auto-improve/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control-plane HTTP server",
	Long:  `Starts the REST API for starting, inspecting, and stopping improvement sessions, plus the session audit trail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.ServerPort = servePort
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := db.Open(filepath.Join(cfg.DataDir, "audit.db"))
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		defer database.Close()
		auditStore := audit.NewStore(database, logger)

		manager, _, err := buildEngine(context.Background(), cfg, auditStore, logger)
		if err != nil {
			return err
		}

		srv := server.New(server.Config{Port: cfg.ServerPort, AllowAll: serveAllowAll},
			manager, auditStore, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
		}

		fmt.Println("Shutting down...")
		for _, s := range manager.ListSessions() {
			manager.StopSession(s.ID)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (overrides config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
