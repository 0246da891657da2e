// Command proxy runs the gateway's classification and backend-selection
// tier: it picks the primary for writes, a replica per the caller's
// read-routing strategy for reads, and attaches provenance (spec §4.3).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hanzltom/cloud-db/internal/config"
	"github.com/hanzltom/cloud-db/internal/discovery"
	"github.com/hanzltom/cloud-db/internal/httpjson"
	"github.com/hanzltom/cloud-db/internal/logging"
	"github.com/hanzltom/cloud-db/internal/metrics"
	"github.com/hanzltom/cloud-db/internal/ratelimit"
	"github.com/hanzltom/cloud-db/internal/routing"
	"github.com/hanzltom/cloud-db/internal/service"
)

const serviceName = "proxy"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Cloud-DB gateway classification and routing tier",
		Long: `The Proxy classifies each surviving statement, selects a backend
(primary for writes, a replica per the caller's read-routing strategy for
reads), dispatches to that backend's Executor, and attaches provenance.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("proxy exited with error")
	}
}

func run(configPath string) error {
	cfg, _, err := config.Load(serviceName, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.LogStartup(logger, serviceName, cfg.ListenAddr)

	src := discovery.NewFileSource(cfg.DiscoveryDir)
	primaryHost, err := discovery.Host(src, discovery.ManagerFile)
	if err != nil {
		return fmt.Errorf("resolving primary (manager) address: %w", err)
	}
	replicaHosts, err := discovery.Hosts(src, discovery.WorkersFile)
	if err != nil {
		return fmt.Errorf("resolving replica (worker) addresses: %w", err)
	}

	replicas := make([]string, len(replicaHosts))
	for i, h := range replicaHosts {
		replicas[i] = discovery.URL(h)
	}

	dir, err := routing.NewDirectory(discovery.URL(primaryHost), replicas)
	if err != nil {
		return fmt.Errorf("building backend directory: %w", err)
	}

	client := httpjson.NewClient(cfg.HTTPClientTimeout)
	m := metrics.New(serviceName)
	limiter := ratelimit.New(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	px := service.NewProxy(dir, client, logger, m, limiter)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: px.Mux()}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.ListenAddr,
			"primary":  dir.Primary,
			"replicas": dir.Replicas,
		}).Info("proxy listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("proxy server error")
		}
	}()

	<-sigChan
	logging.LogShutdown(logger, serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
