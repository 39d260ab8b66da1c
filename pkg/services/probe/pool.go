package probe

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
	"github.com/de-tools/deploy-gate/pkg/services/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

type job struct {
	id     string
	target config.Target
	run    func(ctx context.Context, t config.Target) []domain.CheckResult
}

func (p *Prober) jobs() []job {
	var jobs []job
	for _, t := range p.targets {
		jobs = append(jobs,
			job{"probe.availability", t, p.ProbeAvailability},
			job{"probe.spa.fallback", t, p.ProbeSPARouting},
			job{"probe.asset.reachable", t, p.ProbeAssetReachability},
			job{"probe.serviceWorker", t, p.ProbeServiceWorker},
			job{"probe.securityHeaders", t, p.ProbeSecurityHeaders},
		)
	}
	return jobs
}

// RunAll executes every (target, probe type) pair concurrently, bounded
// by the configured pool size. When ctx expires before a probe
// finishes, that probe is recorded as Critical rather than omitted:
// the report always accounts for every configured check.
func (p *Prober) RunAll(ctx context.Context) []domain.CheckResult {
	jobs := p.jobs()
	if len(jobs) == 0 {
		return nil
	}

	limit := int64(p.cfg.Concurrency)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var mu sync.Mutex
	completed := make([][]domain.CheckResult, len(jobs))
	finished := make([]bool, len(jobs))

	var wg sync.WaitGroup
	for idx, j := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // deadline hit while waiting for a slot
		}
		wg.Add(1)
		go func(idx int, j job) {
			defer wg.Done()
			defer sem.Release(1)
			results := p.runGuarded(ctx, j)
			// Recorded even when the deadline has passed: real results
			// that land before the final accounting pass takes the lock
			// beat a synthesized timeout entry.
			mu.Lock()
			completed[idx] = results
			finished[idx] = true
			mu.Unlock()
		}(idx, j)
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()
	select {
	case <-allDone:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	var out []domain.CheckResult
	for idx, j := range jobs {
		if finished[idx] {
			out = append(out, completed[idx]...)
			continue
		}
		out = append(out, domain.CheckResult{
			ID:        j.id,
			Component: domain.ComponentProbe,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("%s: %s timed out before completion", j.target.Name, j.id),
			Details:   map[string]any{"target": j.target.Name},
		})
	}
	return out
}

// runGuarded is the check boundary: a panicking probe becomes a
// Critical result instead of crashing the pipeline.
func (p *Prober) runGuarded(ctx context.Context, j job) (results []domain.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("probe", j.id).
				Str("target", j.target.Name).
				Msgf("probe panicked: %v", r)
			results = []domain.CheckResult{{
				ID:        j.id,
				Component: domain.ComponentProbe,
				Severity:  domain.SeverityCritical,
				Passed:    false,
				Message:   fmt.Sprintf("%s: internal probe failure: %v", j.target.Name, r),
			}}
		}
	}()
	return j.run(ctx, j.target)
}
