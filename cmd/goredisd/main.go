// Command goredisd runs the key-value server: a cobra root command
// wires configuration, logging, metrics, and the TCP server together,
// following the startup/shutdown sequence of the teacher's main.go.
package main

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

	"github.com/akashmaji946/goredisd/internal/config"
	"github.com/akashmaji946/goredisd/internal/dispatch"
	"github.com/akashmaji946/goredisd/internal/logging"
	"github.com/akashmaji946/goredisd/internal/metrics"
	"github.com/akashmaji946/goredisd/internal/server"
	"github.com/akashmaji946/goredisd/internal/store"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:     "goredisd",
	Short:   "goredisd is an in-memory key-value server speaking a RESP-style protocol",
	Version: version,
	RunE:    runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("addr", "", "address to listen on, e.g. :6379 (overrides config)")
	flags.String("snapshot-path", "", "path to the snapshot file used by SAVE/LOAD")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error, fatal")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-addr", "", "address to serve Prometheus metrics on")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("goredisd: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("goredisd: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat == "json")
	log.Infof("starting goredisd v%s on %s", version, cfg.Addr)

	if dir := filepath.Dir(cfg.SnapshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("goredisd: create snapshot directory: %w", err)
		}
	}

	st := store.New()
	coll := metrics.New()
	st.OnExpire(coll.ExpiredKeysTotal.Inc)

	if _, err := os.Stat(cfg.SnapshotPath); err == nil {
		if _, err := st.Load(cfg.SnapshotPath); err != nil {
			log.Warnf("failed to load snapshot %s: %v", cfg.SnapshotPath, err)
		} else {
			log.Infof("restored keyspace from %s", cfg.SnapshotPath)
		}
	}

	d := dispatch.New(st, cfg.SnapshotPath)
	d.OnCommand(coll.CommandsTotal.Inc)
	d.OnSaveError(coll.SnapshotSaveErrors.Inc)

	srv := server.New(cfg.Addr, d, log, coll)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: coll.Handler()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warnf("metrics server stopped: %v", err)
			}
		}()
		log.Infof("serving metrics on %s", cfg.MetricsAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutdown signal received, closing connections")
		srv.Shutdown()

		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsSrv.Shutdown(shutdownCtx)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	if err := <-errCh; err != nil {
		return fmt.Errorf("goredisd: server: %w", err)
	}

	log.Infof("saving final snapshot to %s", cfg.SnapshotPath)
	if _, err := st.Save(cfg.SnapshotPath); err != nil {
		coll.SnapshotSaveErrors.Inc()
		log.Errorf("final snapshot save failed: %v", err)
	}
	log.Info("graceful shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "goredisd: %v\n", err)
		os.Exit(1)
	}
}
