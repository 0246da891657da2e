// Package routing implements the Proxy's backend directory and
// read-routing strategies (spec §3, §4.3). The round-robin cursor is the
// sole cross-request shared mutable state in the whole gateway; it's kept
// as a single atomic counter per the design note in the original spec.
package routing

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanzltom/cloud-db/internal/metrics"
)

// PingTimeout bounds every /ping health probe used by the customized
// strategy (spec §5: "per-probe hard timeout 2 s").
const PingTimeout = 2 * time.Second

// Directory is the Proxy-local backend topology, loaded once at startup
// and held for the process lifetime (spec §3: "Discovery data is read at
// startup and held for the process lifetime").
type Directory struct {
	Primary  string
	Replicas []string

	cursor atomic.Uint64
}

// NewDirectory validates and builds a backend directory.
func NewDirectory(primary string, replicas []string) (*Directory, error) {
	if len(replicas) == 0 {
		return nil, fmt.Errorf("routing: at least one replica is required")
	}
	for _, r := range replicas {
		if r == primary {
			return nil, fmt.Errorf("routing: primary %q must not also be a replica", primary)
		}
	}
	return &Directory{Primary: primary, Replicas: replicas}, nil
}

// Probe is one replica's measured /ping latency; Duration is +Inf when the
// replica is unreachable or returns a non-200 status.
type Probe struct {
	Backend  string
	Duration float64 // milliseconds
}

// SelectWrite always returns the primary -- spec §8's "write locality"
// invariant.
func (d *Directory) SelectWrite() string {
	return d.Primary
}

// SelectRead resolves a replica backend (or the primary, for "direct")
// according to strategy, returning the chosen backend URL and, when
// strategy is "customized", the probe set. The caller builds the
// provenance string from these.
func (d *Directory) SelectRead(ctx context.Context, strategy string, client *http.Client, m *metrics.Set) (backend string, probes []Probe, err error) {
	switch strategy {
	case "direct":
		return d.Primary, nil, nil
	case "random":
		return d.Replicas[rand.Intn(len(d.Replicas))], nil, nil
	case "customized":
		probes = d.probeAll(ctx, client, m)
		return pickFastest(d.Replicas, probes), probes, nil
	default: // round-robin (also the normalisation of "" / unknown)
		idx := d.cursor.Add(1) - 1
		pos := int(idx % uint64(len(d.Replicas)))
		if m != nil {
			m.RoundRobinIndex.WithLabelValues().Set(float64(pos))
		}
		return d.Replicas[pos], nil, nil
	}
}

// probeAll issues a GET /ping against every replica concurrently, each
// bounded by PingTimeout, and returns one Probe per replica in the
// directory's list order -- spec §4.3: "Probes SHOULD run concurrently
// with a shared deadline".
func (d *Directory) probeAll(ctx context.Context, client *http.Client, m *metrics.Set) []Probe {
	results := make([]Probe, len(d.Replicas))

	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range d.Replicas {
		i, backend := i, backend
		g.Go(func() error {
			results[i] = Probe{Backend: backend, Duration: pingOne(gctx, client, backend)}
			if m != nil {
				m.BackendPing.WithLabelValues(hostOf(backend)).Set(results[i].Duration)
			}
			return nil
		})
	}
	_ = g.Wait() // probe failures map to +Inf, never to an error here

	return results
}

func pingOne(ctx context.Context, client *http.Client, backend string) float64 {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, backend+"/ping", nil)
	if err != nil {
		return mathInf()
	}

	resp, err := client.Do(req)
	if err != nil {
		return mathInf()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mathInf()
	}

	return float64(time.Since(start)) / float64(time.Millisecond)
}

// pickFastest returns the replica with the smallest probe duration, ties
// (and all-unreachable cases) broken by list order.
func pickFastest(replicas []string, probes []Probe) string {
	best := 0
	for i := 1; i < len(probes); i++ {
		if probes[i].Duration < probes[best].Duration {
			best = i
		}
	}
	return replicas[best]
}

func hostOf(backend string) string {
	u, err := url.Parse(backend)
	if err != nil {
		return backend
	}
	return u.Hostname()
}

func mathInf() float64 {
	return math.Inf(1)
}
