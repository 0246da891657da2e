package service

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanzltom/cloud-db/internal/classify"
	"github.com/hanzltom/cloud-db/internal/envelope"
	"github.com/hanzltom/cloud-db/internal/httpjson"
	"github.com/hanzltom/cloud-db/internal/logging"
	"github.com/hanzltom/cloud-db/internal/metrics"
	"github.com/hanzltom/cloud-db/internal/ratelimit"
	"github.com/hanzltom/cloud-db/internal/routing"
)

// queryRequest is the body the Proxy accepts: {query, strategy}.
type queryRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy"`
}

// Proxy classifies statements, selects a backend, dispatches to its
// Executor, and decorates the response with provenance (spec §4.3).
type Proxy struct {
	dir       *routing.Directory
	client    *httpjson.Client
	pingHTTP  *http.Client
	logger    *logrus.Logger
	metrics   *metrics.Set
	limiter   *ratelimit.PerBackend
}

// NewProxy builds a Proxy service handler.
func NewProxy(dir *routing.Directory, client *httpjson.Client, logger *logrus.Logger, m *metrics.Set, limiter *ratelimit.PerBackend) *Proxy {
	return &Proxy{
		dir:      dir,
		client:   client,
		pingHTTP: &http.Client{Timeout: routing.PingTimeout},
		logger:   logger,
		metrics:  m,
		limiter:  limiter,
	}
}

// Mux returns the http.Handler exposing /query, /healthz, /metrics.
func (p *Proxy) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", p.handleQuery)
	mux.HandleFunc("/healthz", metrics.Healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (p *Proxy) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := httpjson.RequestID(r)
	log := p.logger.WithFields(logrus.Fields{
		"component":  "proxy",
		"request_id": requestID,
	})

	var req queryRequest
	if err := httpjson.Decode(r, &req); err != nil {
		p.record("query", "error", start)
		httpjson.WriteError(w, http.StatusBadRequest, "Missing 'query' in request")
		return
	}

	qtype, err := classify.Classify(req.Query)
	if err != nil {
		p.record("query", "unclassifiable", start)
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var (
		backend  string
		probes   []routing.Probe
		provSrc  string
	)

	if qtype == envelope.QueryTypeInsert {
		backend = p.dir.SelectWrite()
		provSrc = "manager"
	} else {
		strategy := string(envelope.Normalize(req.Strategy))
		backend, probes, err = p.dir.SelectRead(r.Context(), strategy, p.pingHTTP, p.metrics)
		if err != nil {
			p.record("query", "error", start)
			httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		provSrc = fmt.Sprintf("%s worker IP: %s", strategy, hostOf(backend))
		if strategy == "customized" {
			provSrc = fmt.Sprintf("%s, ping times: %s", provSrc, formatProbes(probes))
		}
	}

	if p.limiter != nil && !p.limiter.Allow(backend) {
		p.record("query", "rate_limited", start)
		httpjson.WriteError(w, http.StatusTooManyRequests, "Backend dispatch rate limit exceeded")
		return
	}

	status, body, err := p.client.Forward(r.Context(), backend+"/execute", requestID, map[string]string{
		"type":  string(qtype),
		"query": req.Query,
	})
	if err != nil {
		logging.LogRequestError(log, req.Query, err)
		p.record("query", "transport_error", start)
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if status >= 200 && status < 300 {
		decorated, derr := decorateSource(body, provSrc)
		if derr != nil {
			p.record("query", "error", start)
			httpjson.WriteError(w, http.StatusInternalServerError, derr.Error())
			return
		}
		p.record("query", "ok", start)
		httpjson.MirrorJSON(w, status, decorated)
		return
	}

	p.record("query", "downstream_error", start)
	httpjson.MirrorJSON(w, status, body)
}

// decorateSource adds a "source" field to a downstream JSON object body.
func decorateSource(body []byte, source string) ([]byte, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("proxy: decoding downstream body: %w", err)
	}
	obj["source"] = source
	return json.Marshal(obj)
}

func (p *Proxy) record(endpoint, outcome string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	p.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func hostOf(backend string) string {
	u, err := url.Parse(backend)
	if err != nil {
		return backend
	}
	return u.Hostname()
}

func formatProbes(probes []routing.Probe) string {
	parts := make([]string, len(probes))
	for i, pr := range probes {
		if math.IsInf(pr.Duration, 1) {
			parts[i] = fmt.Sprintf("(%s, +Inf)", hostOf(pr.Backend))
		} else {
			parts[i] = fmt.Sprintf("(%s, %.2fms)", hostOf(pr.Backend), pr.Duration)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
