package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
	"github.com/de-tools/deploy-gate/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHeaderEvaluator records the delegated header set.
type stubHeaderEvaluator struct {
	target  string
	headers http.Header
}

func (s *stubHeaderEvaluator) CheckRequiredHeaders(target string, headers http.Header) []domain.CheckResult {
	s.target = target
	s.headers = headers
	return []domain.CheckResult{{
		ID:        "probe.securityHeaders",
		Component: domain.ComponentSecurity,
		Severity:  domain.SeverityInfo,
		Passed:    true,
		Message:   "delegated",
	}}
}

func fastProbeConfig() config.ProbeConfig {
	return config.ProbeConfig{
		Timeout:     2 * time.Second,
		Retries:     1,
		Backoff:     10 * time.Millisecond,
		Concurrency: 4,
		SPAPaths:    []string{"/settings", "/definitely-not-a-route"},
	}
}

func newTestProber(t *testing.T, url string, cfg config.ProbeConfig, eval HeaderEvaluator) *Prober {
	t.Helper()
	logger := zerolog.Nop()
	if eval == nil {
		eval = &stubHeaderEvaluator{}
	}
	return NewProber([]config.Target{{Name: "test", URL: url}}, cfg, eval, &logger)
}

func target(url string) config.Target {
	return config.Target{Name: "test", URL: url}
}

func TestProbeAvailability_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeAvailability(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Contains(t, results[0].Details, "response_ms")
}

func TestProbeAvailability_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeAvailability(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, domain.SeverityWarning, results[0].Severity)
	assert.Equal(t, 404, results[0].Details["status"])
}

func TestProbeAvailability_UnreachableAfterRetries(t *testing.T) {
	var attempts atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := fastProbeConfig()
	cfg.Retries = 2
	prober := newTestProber(t, ts.URL, cfg, nil)
	results := prober.ProbeAvailability(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, domain.SeverityCritical, results[0].Severity)
	// retries+1 total attempts
	assert.Equal(t, int64(3), attempts.Load())
}

func TestProbeAvailability_TimeoutWallClockBound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	cfg := fastProbeConfig()
	cfg.Timeout = 100 * time.Millisecond
	cfg.Retries = 2
	cfg.Backoff = 50 * time.Millisecond
	prober := newTestProber(t, ts.URL, cfg, nil)

	started := time.Now()
	results := prober.ProbeAvailability(context.Background(), target(ts.URL))
	elapsed := time.Since(started)

	require.Len(t, results, 1)
	assert.Equal(t, domain.SeverityCritical, results[0].Severity)
	// Bounded by timeout*(retries+1) + backoff*retries, with slack for
	// scheduling noise.
	assert.Less(t, elapsed, 600*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
}

func TestProbeSPARouting_FallbackServed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // SPA fallback answers everything
	}))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeSPARouting(context.Background(), target(ts.URL))

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed, r.Message)
	}
}

func TestProbeSPARouting_NoFallbackWarnsPerPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeSPARouting(context.Background(), target(ts.URL))

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Passed)
		assert.Equal(t, domain.SeverityWarning, r.Severity)
	}
}

func TestProbeAssetReachability(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script type="module" src="/assets/app.js"></script></html>`))
	})
	mux.HandleFunc("/assets/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeAssetReachability(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestProbeAssetReachability_BrokenAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script type="module" src="/assets/gone.js"></script></html>`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeAssetReachability(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, domain.SeverityCritical, results[0].Severity)
	assert.Equal(t, "/assets/gone.js", results[0].Details["asset"])
}

func TestProbeServiceWorker_Present(t *testing.T) {
	sw := `self.addEventListener('fetch', function(event) {
	event.respondWith(caches.match(event.request).then(function(cached) {
		return cached || fetch(event.request);
	}));
});`
	mux := http.NewServeMux()
	mux.HandleFunc("/sw.js", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sw))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeServiceWorker(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestProbeServiceWorker_Missing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.ProbeServiceWorker(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, domain.SeverityWarning, results[0].Severity)
}

func TestProbeSecurityHeaders_Delegates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
	}))
	defer ts.Close()

	eval := &stubHeaderEvaluator{}
	prober := newTestProber(t, ts.URL, fastProbeConfig(), eval)
	results := prober.ProbeSecurityHeaders(context.Background(), target(ts.URL))

	require.Len(t, results, 1)
	assert.Equal(t, "test", eval.target)
	assert.Equal(t, "DENY", eval.headers.Get("X-Frame-Options"))
}

func TestRunAll_EveryProbeAccountedFor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.RunAll(context.Background())

	ids := map[string]bool{}
	for _, r := range results {
		ids[r.ID] = true
	}
	for _, id := range []string{
		"probe.availability",
		"probe.spa.fallback",
		"probe.asset.reachable",
		"probe.serviceWorker",
		"probe.securityHeaders",
	} {
		assert.True(t, ids[id], id)
	}
}

func TestRunAll_CancelledContextRecordsTimeouts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := newTestProber(t, "http://127.0.0.1:1", fastProbeConfig(), nil)
	results := prober.RunAll(ctx)

	// One result per configured (target, probe type) pair.
	require.Len(t, results, 5)
	for _, r := range results {
		assert.False(t, r.Passed)
		assert.Equal(t, domain.SeverityCritical, r.Severity)
		assert.Contains(t, r.Message, "timed out before completion")
	}
}

// expiredContext reports an exceeded deadline without ever closing
// Done, modeling a probe whose work completes after expiry but before
// the final accounting pass.
type expiredContext struct{ context.Context }

func (expiredContext) Err() error { return context.DeadlineExceeded }

func TestRunAll_KeepsResultsRecordedAfterDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	prober := newTestProber(t, ts.URL, fastProbeConfig(), nil)
	results := prober.RunAll(expiredContext{context.Background()})

	// The probes ran to completion, so their real results win over
	// synthesized timeout entries.
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotContains(t, r.Message, "timed out before completion", r.ID)
	}
}

func TestRunAll_NoTargets(t *testing.T) {
	logger := zerolog.Nop()
	prober := NewProber(nil, fastProbeConfig(), &stubHeaderEvaluator{}, &logger)
	assert.Nil(t, prober.RunAll(context.Background()))
}
