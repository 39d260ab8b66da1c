package domain

import "time"

type Verdict string

const (
	VerdictPass             Verdict = "pass"
	VerdictPassWithWarnings Verdict = "pass_with_warnings"
	VerdictFail             Verdict = "fail"
)

// Summary counts results by outcome.
type Summary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Critical int `json:"critical"`
	Fatal    int `json:"fatal"`
}

// Report is the aggregate output of one pipeline run. It is constructed
// exactly once by the aggregator and never mutated afterwards; Results
// preserve completion order, which is a display concern only.
type Report struct {
	Timestamp  time.Time     `json:"timestamp"`
	DurationMs int64         `json:"duration_ms"`
	Target     string        `json:"target,omitempty"`
	Results    []CheckResult `json:"results"`
	Summary    Summary       `json:"summary"`
	Score      int           `json:"score"`
	Verdict    Verdict       `json:"verdict"`
}

// ExitCode maps the verdict onto the process exit code consumed by CI.
// strict promotes warnings to a failing exit.
func (r *Report) ExitCode(strict bool) int {
	switch r.Verdict {
	case VerdictFail:
		return 1
	case VerdictPassWithWarnings:
		if strict {
			return 1
		}
		return 0
	default:
		return 0
	}
}
