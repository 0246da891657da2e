package service

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanzltom/cloud-db/internal/envelope"
	"github.com/hanzltom/cloud-db/internal/httpjson"
	"github.com/hanzltom/cloud-db/internal/logging"
	"github.com/hanzltom/cloud-db/internal/metrics"
)

// startRequest is the body the Gatekeeper accepts: {query, strategy?}.
type startRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy"`
}

// Gatekeeper is the public ingress. Its only security role is being the
// sole process with network reach to the Trusted Host -- it performs no
// SQL inspection of its own (spec §4.1).
type Gatekeeper struct {
	trustedHostURL string
	client         *httpjson.Client
	logger         *logrus.Logger
	metrics        *metrics.Set
}

// NewGatekeeper builds a Gatekeeper service handler.
func NewGatekeeper(trustedHostURL string, client *httpjson.Client, logger *logrus.Logger, m *metrics.Set) *Gatekeeper {
	return &Gatekeeper{trustedHostURL: trustedHostURL, client: client, logger: logger, metrics: m}
}

// Mux returns the http.Handler exposing /start, /healthz, /metrics.
func (g *Gatekeeper) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", g.handleStart)
	mux.HandleFunc("/healthz", metrics.Healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (g *Gatekeeper) handleStart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := httpjson.RequestID(r)
	log := g.logger.WithFields(logrus.Fields{
		"component":  "gatekeeper",
		"request_id": requestID,
	})

	var req startRequest
	_ = httpjson.Decode(r, &req)

	if req.Query == "" {
		g.record("start", "rejected", start)
		httpjson.WriteError(w, http.StatusBadRequest, "No query provided")
		return
	}

	strategy := string(envelope.Normalize(req.Strategy))

	status, body, err := g.client.Forward(r.Context(), g.trustedHostURL+"/validate", requestID, envelope.Request{
		Query:         req.Query,
		Strategy:      strategy,
		Authorization: true,
	})
	if err != nil {
		logging.LogRequestError(log, req.Query, err)
		g.record("start", "transport_error", start)
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set(httpjson.RequestIDHeader, requestID)
	g.record("start", outcomeFor(status), start)
	httpjson.MirrorJSON(w, status, body)
}

func (g *Gatekeeper) record(endpoint, outcome string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	g.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
