package service

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanzltom/cloud-db/internal/httpjson"
	"github.com/hanzltom/cloud-db/internal/logging"
	"github.com/hanzltom/cloud-db/internal/metrics"
	"github.com/hanzltom/cloud-db/internal/validation"
)

// validateRequest is the body Trusted Host accepts: {query, Authorization,
// strategy}.
type validateRequest struct {
	Query         string `json:"query"`
	Authorization bool   `json:"Authorization"`
	Strategy      string `json:"strategy"`
}

// TrustedHost runs the ordered SQL-surface validation sequence and
// forwards surviving requests to the Proxy (spec §4.2).
type TrustedHost struct {
	checker   *validation.Checker
	proxyURL  string
	client    *httpjson.Client
	logger    *logrus.Logger
	metrics   *metrics.Set
}

// NewTrustedHost builds a TrustedHost service handler.
func NewTrustedHost(checker *validation.Checker, proxyURL string, client *httpjson.Client, logger *logrus.Logger, m *metrics.Set) *TrustedHost {
	return &TrustedHost{checker: checker, proxyURL: proxyURL, client: client, logger: logger, metrics: m}
}

// Mux returns the http.Handler exposing /validate, /healthz, /metrics.
func (t *TrustedHost) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/validate", t.handleValidate)
	mux.HandleFunc("/healthz", metrics.Healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (t *TrustedHost) handleValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := httpjson.RequestID(r)
	log := t.logger.WithFields(logrus.Fields{
		"component":  "trustedhost",
		"request_id": requestID,
	})

	var req validateRequest
	_ = httpjson.Decode(r, &req) // malformed body degrades to an empty query, rejected by the rule table below

	ok, reason := t.checker.Validate(req.Query, req.Authorization)
	if !ok {
		t.record("validate", "rejected", start)
		httpjson.WriteError(w, http.StatusBadRequest, reason)
		return
	}

	status, body, err := t.client.Forward(r.Context(), t.proxyURL+"/query", requestID, map[string]string{
		"query":    req.Query,
		"strategy": req.Strategy,
	})
	if err != nil {
		logging.LogRequestError(log, req.Query, err)
		t.record("validate", "transport_error", start)
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	t.record("validate", outcomeFor(status), start)
	httpjson.MirrorJSON(w, status, body)
}

func (t *TrustedHost) record(endpoint, outcome string, start time.Time) {
	if t.metrics == nil {
		return
	}
	t.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	t.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func outcomeFor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status >= 400 && status < 500:
		return "downstream_rejected"
	default:
		return "downstream_error"
	}
}
