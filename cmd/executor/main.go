// Command executor runs on every database node: it accepts a validated
// query from the Proxy and runs it against the local MySQL instance with
// the right transactional semantics (spec §4.4).
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
	"github.com/hanzltom/cloud-db/internal/logging"
	"github.com/hanzltom/cloud-db/internal/metrics"
	"github.com/hanzltom/cloud-db/internal/mysqlexec"
	"github.com/hanzltom/cloud-db/internal/ratelimit"
	"github.com/hanzltom/cloud-db/internal/service"
)

const serviceName = "executor"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Cloud-DB gateway MySQL execution tier",
		Long: `The Executor runs a single validated query against the local MySQL
instance per call, acquiring a pooled connection on entry and releasing it
on every exit path, returning either a result set or a write
acknowledgement.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("executor exited with error")
	}
}

func run(configPath string) error {
	cfg, v, err := config.Load(serviceName, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	v.SetDefault("mysql_host", "127.0.0.1")
	v.SetDefault("mysql_port", 3306)
	v.SetDefault("mysql_user", mysqlexec.DefaultUser)
	v.SetDefault("mysql_password", mysqlexec.DefaultPassword)
	v.SetDefault("mysql_database", mysqlexec.DefaultDatabase)

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.LogStartup(logger, serviceName, cfg.ListenAddr)

	db, err := mysqlexec.Open(
		v.GetString("mysql_host"),
		v.GetInt("mysql_port"),
		v.GetString("mysql_user"),
		v.GetString("mysql_password"),
		v.GetString("mysql_database"),
		mysqlexec.DefaultPoolConfig(),
	)
	if err != nil {
		return fmt.Errorf("opening MySQL connection pool: %w", err)
	}
	defer db.Close()

	m := metrics.New(serviceName)
	limiter := ratelimit.New(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	ex := service.NewExecutor(db, logger, m, limiter)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: ex.Mux()}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("executor listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("executor server error")
		}
	}()

	<-sigChan
	logging.LogShutdown(logger, serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
