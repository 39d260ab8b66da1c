package aggregate

import (
	"time"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
)

// Deductions applied per failed result. The score is informational
// trend data; the verdict is the actual release gate.
const (
	criticalDeduction        = 25
	securityWarningDeduction = 10
	warningDeduction         = 5
)

// Build constructs the immutable Report from the complete result set.
// It is called exactly once per pipeline run.
func Build(results []domain.CheckResult, started time.Time, target string) *domain.Report {
	report := &domain.Report{
		Timestamp:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Target:     target,
		Results:    results,
		Summary:    summarize(results),
	}
	report.Verdict = verdict(report.Summary)

	// A Fatal result short-circuits scoring: the score stays zero and
	// the verdict is already Fail.
	if report.Summary.Fatal == 0 {
		report.Score = score(results)
	}
	return report
}

func summarize(results []domain.CheckResult) domain.Summary {
	var s domain.Summary
	for _, r := range results {
		if r.Passed {
			s.Passed++
			continue
		}
		switch r.Severity {
		case domain.SeverityFatal:
			s.Fatal++
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityWarning:
			s.Warnings++
		}
	}
	return s
}

func verdict(s domain.Summary) domain.Verdict {
	switch {
	case s.Fatal > 0 || s.Critical > 0:
		return domain.VerdictFail
	case s.Warnings > 0:
		return domain.VerdictPassWithWarnings
	default:
		return domain.VerdictPass
	}
}

func score(results []domain.CheckResult) int {
	total := 100
	for _, r := range results {
		if r.Passed {
			continue
		}
		switch r.Severity {
		case domain.SeverityCritical:
			total -= criticalDeduction
		case domain.SeverityWarning:
			if r.SecurityRelated() {
				total -= securityWarningDeduction
			} else {
				total -= warningDeduction
			}
		}
	}
	if total < 0 {
		return 0
	}
	return total
}
