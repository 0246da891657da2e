// Package logging wraps logrus with the gateway's structured-field
// conventions, mirroring the per-component logger used across MarchProxy's
// proxy services.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls logger construction.
type Config struct {
	Level  string
	Format string // "json" or "text"
}

// New builds a logrus.Logger with the gateway's default formatting.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// WithComponent scopes a logger entry to a named subsystem, e.g.
// "validation", "routing", "executor".
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

// LogStartup records a uniform startup line across all four services.
func LogStartup(logger *logrus.Logger, service, addr string) {
	logger.WithFields(logrus.Fields{
		"component": "startup",
		"service":   service,
		"addr":      addr,
	}).Info("service starting")
}

// LogShutdown records a uniform shutdown line across all four services.
func LogShutdown(logger *logrus.Logger, service, reason string) {
	logger.WithFields(logrus.Fields{
		"component": "shutdown",
		"service":   service,
		"reason":    reason,
	}).Info("service shutting down")
}

// LogRequestError logs a failure at the hop that produced it, truncating
// the query text so a pathological request can't blow up log volume.
func LogRequestError(entry *logrus.Entry, query string, err error) {
	const maxQueryLog = 200
	q := query
	if len(q) > maxQueryLog {
		q = q[:maxQueryLog] + "...(truncated)"
	}
	entry.WithFields(logrus.Fields{
		"query": q,
		"error": err.Error(),
	}).Warn("request failed")
}
