// Command gatekeeper runs the gateway's public ingress: the only service a
// client can reach, and the only one with network reach to the Trusted
// Host (spec §4.1).
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
	"github.com/hanzltom/cloud-db/internal/service"
)

const serviceName = "gatekeeper"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Cloud-DB gateway public ingress",
		Long: `The Gatekeeper accepts client SQL requests over HTTP, stamps them with an
authorization marker, and forwards them to the Trusted Host. It performs
no SQL inspection of its own -- that's the Trusted Host's job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("gatekeeper exited with error")
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
	trustedHostHost, err := discovery.Host(src, discovery.TrustedHostFile)
	if err != nil {
		return fmt.Errorf("resolving trusted host address: %w", err)
	}

	client := httpjson.NewClient(cfg.HTTPClientTimeout)
	m := metrics.New(serviceName)
	gk := service.NewGatekeeper(discovery.URL(trustedHostHost), client, logger, m)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: gk.Mux()}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("gatekeeper listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("gatekeeper server error")
		}
	}()

	<-sigChan
	logging.LogShutdown(logger, serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
