package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
	"github.com/de-tools/deploy-gate/pkg/services/config"
	"github.com/de-tools/deploy-gate/pkg/services/inspect"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const swMinSize = 100 // bytes; anything smaller is a stub, not a service worker

// HeaderEvaluator judges a captured response header set. The prober is
// the I/O source; evaluation lives in the security auditor's rule table.
type HeaderEvaluator interface {
	CheckRequiredHeaders(target string, headers http.Header) []domain.CheckResult
}

// Prober runs the network checks against one or more deployment URLs.
// Each probe is independently retried and produces its results as pure
// return values, which is what makes the concurrent pool safe.
type Prober struct {
	targets []config.Target
	cfg     config.ProbeConfig
	client  *retryablehttp.Client
	html    inspect.HTMLInspector
	headers HeaderEvaluator
}

func NewProber(targets []config.Target, cfg config.ProbeConfig, headers HeaderEvaluator, logger *zerolog.Logger) *Prober {
	return &Prober{
		targets: targets,
		cfg:     cfg,
		client:  newClient(cfg, logger),
		html:    inspect.NewHTMLInspector(),
		headers: headers,
	}
}

func (p *Prober) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return p.client.Do(req)
}

func (p *Prober) head(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return p.client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ProbeAvailability checks that the deployment answers 200 within the
// timeout. Unreachable after retries is Critical; an unexpected but
// answering status only warns.
func (p *Prober) ProbeAvailability(ctx context.Context, t config.Target) []domain.CheckResult {
	started := time.Now()
	resp, err := p.get(ctx, t.URL)
	elapsed := time.Since(started)
	if err != nil {
		return []domain.CheckResult{{
			ID:          "probe.availability",
			Component:   domain.ComponentProbe,
			Severity:    domain.SeverityCritical,
			Passed:      false,
			Message:     fmt.Sprintf("%s is unreachable after %d retries: %v", t.Name, p.cfg.Retries, err),
			Remediation: "check DNS, TLS and the hosting dashboard for the deployment",
			Details:     map[string]any{"target": t.Name, "url": t.URL},
		}}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return []domain.CheckResult{{
			ID:        "probe.availability",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityWarning,
			Passed:    false,
			Message:   fmt.Sprintf("%s answered %d instead of 200", t.Name, resp.StatusCode),
			Details:   map[string]any{"target": t.Name, "status": resp.StatusCode},
		}}
	}
	return []domain.CheckResult{{
		ID:        "probe.availability",
		Component: domain.ComponentProbe,
		Severity:  domain.SeverityInfo,
		Passed:    true,
		Message:   fmt.Sprintf("%s answered 200 in %s", t.Name, elapsed.Round(time.Millisecond)),
		Details:   map[string]any{"target": t.Name, "response_ms": elapsed.Milliseconds()},
	}}
}

// ProbeSPARouting requests deep paths that do not exist on disk and
// expects the SPA fallback to answer 200. Some hosts intentionally 404
// unknown routes, so failures are advisory per path.
func (p *Prober) ProbeSPARouting(ctx context.Context, t config.Target) []domain.CheckResult {
	var results []domain.CheckResult
	for _, path := range p.cfg.SPAPaths {
		target, err := url.JoinPath(t.URL, path)
		if err != nil {
			results = append(results, domain.CheckResult{
				ID:        "probe.spa.fallback",
				Component: domain.ComponentProbe,
				Severity:  domain.SeverityWarning,
				Passed:    false,
				Message:   fmt.Sprintf("%s: cannot build URL for path %s: %v", t.Name, path, err),
			})
			continue
		}
		resp, err := p.get(ctx, target)
		if err != nil {
			results = append(results, domain.CheckResult{
				ID:        "probe.spa.fallback",
				Component: domain.ComponentProbe,
				Severity:  domain.SeverityWarning,
				Passed:    false,
				Message:   fmt.Sprintf("%s: %s unreachable: %v", t.Name, path, err),
				Details:   map[string]any{"target": t.Name, "path": path},
			})
			continue
		}
		status := resp.StatusCode
		drain(resp)
		if status != http.StatusOK {
			results = append(results, domain.CheckResult{
				ID:          "probe.spa.fallback",
				Component:   domain.ComponentProbe,
				Severity:    domain.SeverityWarning,
				Passed:      false,
				Message:     fmt.Sprintf("%s: %s answered %d, SPA fallback not serving index", t.Name, path, status),
				Remediation: "configure the host to rewrite unknown routes to /index.html",
				Details:     map[string]any{"target": t.Name, "path": path, "status": status},
			})
			continue
		}
		results = append(results, domain.CheckResult{
			ID:        "probe.spa.fallback",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   fmt.Sprintf("%s: %s falls back to 200", t.Name, path),
		})
	}
	return results
}

// ProbeAssetReachability fetches the root HTML and issues HEAD requests
// against every referenced asset. A deployed page referencing an
// unreachable asset is a broken deployment.
func (p *Prober) ProbeAssetReachability(ctx context.Context, t config.Target) []domain.CheckResult {
	resp, err := p.get(ctx, t.URL)
	if err != nil {
		return []domain.CheckResult{{
			ID:        "probe.asset.reachable",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("%s: cannot fetch root HTML: %v", t.Name, err),
			Details:   map[string]any{"target": t.Name},
		}}
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return []domain.CheckResult{{
			ID:        "probe.asset.reachable",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("%s: failed reading root HTML: %v", t.Name, readErr),
		}}
	}

	base, err := url.Parse(t.URL)
	if err != nil {
		return []domain.CheckResult{{
			ID:        "probe.asset.reachable",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("%s: invalid base URL: %v", t.Name, err),
		}}
	}

	var results []domain.CheckResult
	for _, ref := range p.html.AssetRefs(string(body)) {
		refURL, err := base.Parse(ref)
		if err != nil {
			continue
		}
		resp, err := p.head(ctx, refURL.String())
		if err != nil {
			results = append(results, domain.CheckResult{
				ID:          "probe.asset.reachable",
				Component:   domain.ComponentProbe,
				Severity:    domain.SeverityCritical,
				Passed:      false,
				Message:     fmt.Sprintf("%s: asset %s unreachable: %v", t.Name, ref, err),
				Remediation: "redeploy; the published page references an asset the host is not serving",
				Details:     map[string]any{"target": t.Name, "asset": ref},
			})
			continue
		}
		status := resp.StatusCode
		drain(resp)
		if status >= 400 {
			results = append(results, domain.CheckResult{
				ID:          "probe.asset.reachable",
				Component:   domain.ComponentProbe,
				Severity:    domain.SeverityCritical,
				Passed:      false,
				Message:     fmt.Sprintf("%s: asset %s answered %d", t.Name, ref, status),
				Remediation: "redeploy; the published page references an asset the host is not serving",
				Details:     map[string]any{"target": t.Name, "asset": ref, "status": status},
			})
		}
	}
	if len(results) == 0 {
		results = append(results, domain.CheckResult{
			ID:        "probe.asset.reachable",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   fmt.Sprintf("%s: all referenced assets reachable", t.Name),
		})
	}
	return results
}

// ProbeServiceWorker checks /sw.js for a non-trivial caching service
// worker. Its absence only degrades offline support, so this warns.
func (p *Prober) ProbeServiceWorker(ctx context.Context, t config.Target) []domain.CheckResult {
	target, err := url.JoinPath(t.URL, "/sw.js")
	if err != nil {
		return []domain.CheckResult{{
			ID:        "probe.serviceWorker",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityWarning,
			Passed:    false,
			Message:   fmt.Sprintf("%s: cannot build service worker URL: %v", t.Name, err),
		}}
	}
	resp, err := p.get(ctx, target)
	if err == nil && resp.StatusCode != http.StatusOK {
		drain(resp)
		err = fmt.Errorf("status %d", resp.StatusCode)
	}
	if err != nil {
		return []domain.CheckResult{{
			ID:          "probe.serviceWorker",
			Component:   domain.ComponentProbe,
			Severity:    domain.SeverityWarning,
			Passed:      false,
			Message:     fmt.Sprintf("%s: /sw.js not served, offline support degraded", t.Name),
			Remediation: "ship a service worker with the build if offline support is expected",
			Details:     map[string]any{"target": t.Name},
		}}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()

	script := string(body)
	caching := strings.Contains(script, "cache") || strings.Contains(script, "fetch")
	if len(body) < swMinSize || !caching {
		return []domain.CheckResult{{
			ID:        "probe.serviceWorker",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityWarning,
			Passed:    false,
			Message:   fmt.Sprintf("%s: /sw.js looks like a stub (%d bytes, caching logic absent)", t.Name, len(body)),
			Details:   map[string]any{"target": t.Name, "size_bytes": len(body)},
		}}
	}
	return []domain.CheckResult{{
		ID:        "probe.serviceWorker",
		Component: domain.ComponentProbe,
		Severity:  domain.SeverityInfo,
		Passed:    true,
		Message:   fmt.Sprintf("%s: service worker present (%d bytes)", t.Name, len(body)),
		Details:   map[string]any{"target": t.Name, "size_bytes": len(body)},
	}}
}

// ProbeSecurityHeaders captures the root response headers and hands
// them to the security auditor's rule table.
func (p *Prober) ProbeSecurityHeaders(ctx context.Context, t config.Target) []domain.CheckResult {
	resp, err := p.get(ctx, t.URL)
	if err != nil {
		return []domain.CheckResult{{
			ID:        "probe.securityHeaders",
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("%s: cannot capture response headers: %v", t.Name, err),
			Details:   map[string]any{"target": t.Name},
		}}
	}
	headers := resp.Header
	drain(resp)
	return p.headers.CheckRequiredHeaders(t.Name, headers)
}
