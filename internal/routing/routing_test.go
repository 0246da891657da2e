package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	dir, err := NewDirectory("http://primary:5000", []string{"http://replica-0:5000", "http://replica-1:5000"})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	return dir
}

func TestNewDirectoryRejectsPrimaryAsReplica(t *testing.T) {
	if _, err := NewDirectory("http://primary:5000", []string{"http://primary:5000"}); err == nil {
		t.Fatal("expected error when primary is listed as a replica")
	}
}

func TestNewDirectoryRequiresReplica(t *testing.T) {
	if _, err := NewDirectory("http://primary:5000", nil); err == nil {
		t.Fatal("expected error when no replicas are given")
	}
}

func TestSelectWriteAlwaysPrimary(t *testing.T) {
	dir := newTestDirectory(t)
	for i := 0; i < 5; i++ {
		if got := dir.SelectWrite(); got != dir.Primary {
			t.Errorf("SelectWrite = %q, want primary %q", got, dir.Primary)
		}
	}
}

func TestSelectReadRoundRobinCyclesFromZero(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	first, _, err := dir.SelectRead(ctx, "round-robin", http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("SelectRead: %v", err)
	}
	second, _, err := dir.SelectRead(ctx, "round-robin", http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("SelectRead: %v", err)
	}
	third, _, err := dir.SelectRead(ctx, "round-robin", http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("SelectRead: %v", err)
	}

	if first != dir.Replicas[0] {
		t.Errorf("first read = %q, want replica 0 (%q)", first, dir.Replicas[0])
	}
	if second != dir.Replicas[1] {
		t.Errorf("second read = %q, want replica 1 (%q)", second, dir.Replicas[1])
	}
	if third != dir.Replicas[0] {
		t.Errorf("third read = %q, want replica 0 again (%q)", third, dir.Replicas[0])
	}
}

func TestSelectReadDirectReturnsPrimary(t *testing.T) {
	dir := newTestDirectory(t)
	backend, _, err := dir.SelectRead(context.Background(), "direct", http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("SelectRead: %v", err)
	}
	if backend != dir.Primary {
		t.Errorf("direct read = %q, want primary %q", backend, dir.Primary)
	}
}

func TestSelectReadRandomStaysWithinReplicaSet(t *testing.T) {
	dir := newTestDirectory(t)
	valid := map[string]bool{dir.Replicas[0]: true, dir.Replicas[1]: true}

	for i := 0; i < 20; i++ {
		backend, _, err := dir.SelectRead(context.Background(), "random", http.DefaultClient, nil)
		if err != nil {
			t.Fatalf("SelectRead: %v", err)
		}
		if !valid[backend] {
			t.Fatalf("random read returned %q, not a known replica", backend)
		}
	}
}

func TestSelectReadCustomizedPicksFastestReplica(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unreachable.Close()

	dir, err := NewDirectory("http://primary:5000", []string{unreachable.URL, slow.URL})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	backend, probes, err := dir.SelectRead(context.Background(), "customized", http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("SelectRead: %v", err)
	}
	if backend != slow.URL {
		t.Errorf("customized read = %q, want the reachable replica %q", backend, slow.URL)
	}
	if len(probes) != 2 {
		t.Fatalf("probes = %d, want 2", len(probes))
	}
}
