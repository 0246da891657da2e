// Command trustedhost runs the gateway's SQL-surface validation tier: the
// only service authorized to reach the Proxy (spec §4.2).
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
	"github.com/hanzltom/cloud-db/internal/validation"
)

const serviceName = "trustedhost"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Cloud-DB gateway SQL validation tier",
		Long: `The Trusted Host runs the injection filter, WHERE-clause requirement,
tautology filter, authorization check, and length cap -- in that order --
before forwarding surviving requests to the Proxy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("trustedhost exited with error")
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
	proxyHost, err := discovery.Host(src, discovery.ProxyFile)
	if err != nil {
		return fmt.Errorf("resolving proxy address: %w", err)
	}

	client := httpjson.NewClient(cfg.HTTPClientTimeout)
	m := metrics.New(serviceName)
	checker := validation.NewChecker(logger)
	th := service.NewTrustedHost(checker, discovery.URL(proxyHost), client, logger, m)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: th.Mux()}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("trusted host listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("trusted host server error")
		}
	}()

	<-sigChan
	logging.LogShutdown(logger, serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
