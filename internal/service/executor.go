package service

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanzltom/cloud-db/internal/envelope"
	"github.com/hanzltom/cloud-db/internal/httpjson"
	"github.com/hanzltom/cloud-db/internal/logging"
	"github.com/hanzltom/cloud-db/internal/metrics"
	"github.com/hanzltom/cloud-db/internal/mysqlexec"
	"github.com/hanzltom/cloud-db/internal/ratelimit"
)

// executeRequest is the body Executor accepts: {type, query}.
type executeRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// Executor wires the /execute and /ping endpoints onto a MySQL backend.
type Executor struct {
	db      *mysqlexec.Executor
	logger  *logrus.Logger
	metrics *metrics.Set
	limiter *ratelimit.PerBackend
}

// NewExecutor builds an Executor service handler.
func NewExecutor(db *mysqlexec.Executor, logger *logrus.Logger, m *metrics.Set, limiter *ratelimit.PerBackend) *Executor {
	return &Executor{db: db, logger: logger, metrics: m, limiter: limiter}
}

// Mux returns the http.Handler exposing /execute, /ping, /healthz, /metrics.
func (e *Executor) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/execute", e.handleExecute)
	mux.HandleFunc("/ping", e.handlePing)
	mux.HandleFunc("/healthz", metrics.Healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (e *Executor) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (e *Executor) handleExecute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := e.logger.WithFields(logrus.Fields{
		"component":  "executor",
		"request_id": httpjson.RequestID(r),
	})

	var req executeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		e.record("execute", "error", start)
		httpjson.WriteError(w, http.StatusBadRequest, "No query provided")
		return
	}

	if req.Query == "" {
		e.record("execute", "rejected", start)
		httpjson.WriteError(w, http.StatusBadRequest, "No query provided")
		return
	}

	if e.limiter != nil && !e.limiter.Allow("local") {
		e.record("execute", "rate_limited", start)
		httpjson.WriteError(w, http.StatusTooManyRequests, "Query rate limit exceeded")
		return
	}

	isSelect := req.Type == string(envelope.QueryTypeSelect)

	result, err := e.db.Execute(r.Context(), req.Query, isSelect)
	if err != nil {
		logging.LogRequestError(log, req.Query, err)
		e.record("execute", "error", start)
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	e.record("execute", "ok", start)
	httpjson.WriteJSON(w, http.StatusOK, result)
}

func (e *Executor) record(endpoint, outcome string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	e.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
