package flakewatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamilpajak/flakewatch/internal/api"
)

var (
	serveListen     string
	serveIngestRate float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics API over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().Float64Var(&serveIngestRate, "ingest-rate", 5, "Max ingested batches per second (0 = unlimited)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	listen := c.cfg.Listen
	if serveListen != "" {
		listen = serveListen
	}

	srv := &http.Server{
		Addr: listen,
		Handler: api.NewServer(api.Config{
			Tracker:    c.tracker,
			Analyzer:   c.analyzer,
			Logger:     c.logger,
			IngestRate: serveIngestRate,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("api listening", zap.String("addr", listen))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-stop:
		fmt.Fprintln(os.Stderr, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}
