package domain

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Component identifies which checker produced a result.
type Component string

const (
	ComponentArtifact Component = "artifact"
	ComponentProbe    Component = "probe"
	ComponentSecurity Component = "security"
)

// CheckResult is the atomic unit of evidence emitted by every check.
// Details never carries raw secret material; secret scans report the
// pattern name and file path only.
type CheckResult struct {
	ID          string         `json:"id"`
	Component   Component      `json:"component"`
	Severity    Severity       `json:"severity"`
	Passed      bool           `json:"passed"`
	Message     string         `json:"message"`
	Remediation string         `json:"remediation,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Failed reports whether the result should count against the verdict.
func (r CheckResult) Failed() bool {
	return !r.Passed
}

// SecurityRelated reports whether a failed result carries the heavier
// warning deduction during scoring.
func (r CheckResult) SecurityRelated() bool {
	return r.Component == ComponentSecurity
}
