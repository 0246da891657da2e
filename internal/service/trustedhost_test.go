package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hanzltom/cloud-db/internal/httpjson"
	"github.com/hanzltom/cloud-db/internal/metrics"
	"github.com/hanzltom/cloud-db/internal/validation"
)

func TestTrustedHostRejectsInjection(t *testing.T) {
	checker := validation.NewChecker(discardLogger())
	th := NewTrustedHost(checker, "http://unused", httpjson.NewClient(0), discardLogger(), metrics.New("th_inject"))

	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(`{"query":"DROP TABLE actor","Authorization":true}`))
	w := httptest.NewRecorder()
	th.Mux().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Possible SQL injection detected") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestTrustedHostForwardsValidQuery(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result":[]}`))
	}))
	defer proxy.Close()

	checker := validation.NewChecker(discardLogger())
	th := NewTrustedHost(checker, proxy.URL, httpjson.NewClient(0), discardLogger(), metrics.New("th_forward"))

	body := `{"query":"SELECT * FROM actor WHERE actor_id=1","Authorization":true,"strategy":"round-robin"}`
	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(body))
	w := httptest.NewRecorder()
	th.Mux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestTrustedHostMalformedBodyDegradesToRejection(t *testing.T) {
	checker := validation.NewChecker(discardLogger())
	th := NewTrustedHost(checker, "http://unused", httpjson.NewClient(0), discardLogger(), metrics.New("th_malformed"))

	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(`not json`))
	w := httptest.NewRecorder()
	th.Mux().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", w.Code)
	}
}
