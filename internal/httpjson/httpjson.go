// Package httpjson provides the small set of JSON request/response helpers
// shared by every hop: decode an inbound envelope, write an error body,
// forward an envelope downstream and mirror the response verbatim.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader is the header used to correlate a single client request
// across every hop's structured logs.
const RequestIDHeader = "X-Request-Id"

// DefaultTimeout bounds every outbound hop-to-hop call. The spec
// recommends a finite, implementation-defined timeout; it must never be
// unbounded.
const DefaultTimeout = 5 * time.Second

// Decode reads and JSON-decodes the request body into v.
func Decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("httpjson: decoding request body: %w", err)
	}
	return nil
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the uniform {"error": "..."} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// RequestID returns the inbound request's correlation ID, minting a fresh
// one (via github.com/google/uuid) if the caller didn't supply one -- the
// Gatekeeper is the usual minting point since it's the first hop.
func RequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// Client is a thin wrapper around http.Client with a fixed timeout,
// matching the "finite request timeout RECOMMENDED" guidance in spec §5.
type Client struct {
	HTTP *http.Client
}

// NewClient builds a Client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Forward POSTs body (JSON-encoded) to url, propagating requestID, and
// returns the downstream status code and raw JSON body bytes.
func (c *Client) Forward(ctx context.Context, url, requestID string, body interface{}) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("httpjson: encoding forward body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("httpjson: building forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httpjson: forwarding to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("httpjson: reading downstream response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// MirrorJSON writes a raw downstream JSON body verbatim, with its original
// status code, onto w -- used by every hop that forwards transparently.
func MirrorJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
