package security

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
)

// HeaderRule describes one required response header. HSTS is only a
// Warning: its absence is bad practice but not immediately exploitable
// the way clickjacking or MIME sniffing are.
type HeaderRule struct {
	Name     string
	Expected *regexp.Regexp
	Severity domain.Severity
	Hint     string
}

func defaultHeaderRules() []HeaderRule {
	return []HeaderRule{
		{
			Name:     "X-Frame-Options",
			Expected: regexp.MustCompile(`(?i)^(DENY|SAMEORIGIN)$`),
			Severity: domain.SeverityCritical,
			Hint:     "set X-Frame-Options: DENY to prevent clickjacking",
		},
		{
			Name:     "X-Content-Type-Options",
			Expected: regexp.MustCompile(`(?i)^nosniff$`),
			Severity: domain.SeverityCritical,
			Hint:     "set X-Content-Type-Options: nosniff",
		},
		{
			Name:     "X-XSS-Protection",
			Expected: regexp.MustCompile(`.+`),
			Severity: domain.SeverityCritical,
			Hint:     "set X-XSS-Protection: 1; mode=block",
		},
		{
			Name:     "Strict-Transport-Security",
			Expected: regexp.MustCompile(`(?i)max-age=\d+`),
			Severity: domain.SeverityWarning,
			Hint:     "set Strict-Transport-Security with a max-age directive",
		},
	}
}

// CheckRequiredHeaders evaluates a captured header set against the rule
// table. The target name distinguishes results when several deployments
// are probed in one run.
func (a *Auditor) CheckRequiredHeaders(target string, headers http.Header) []domain.CheckResult {
	var results []domain.CheckResult
	for _, rule := range a.headerRules {
		id := fmt.Sprintf("security.header.%s", rule.Name)
		value := headers.Get(rule.Name)
		switch {
		case value == "":
			results = append(results, domain.CheckResult{
				ID:          id,
				Component:   domain.ComponentSecurity,
				Severity:    rule.Severity,
				Passed:      false,
				Message:     fmt.Sprintf("%s: missing %s header", target, rule.Name),
				Remediation: rule.Hint,
				Details:     map[string]any{"target": target},
			})
		case !rule.Expected.MatchString(value):
			results = append(results, domain.CheckResult{
				ID:          id,
				Component:   domain.ComponentSecurity,
				Severity:    rule.Severity,
				Passed:      false,
				Message:     fmt.Sprintf("%s: %s has unexpected value %q", target, rule.Name, value),
				Remediation: rule.Hint,
				Details:     map[string]any{"target": target, "value": value},
			})
		default:
			results = append(results, domain.CheckResult{
				ID:        id,
				Component: domain.ComponentSecurity,
				Severity:  domain.SeverityInfo,
				Passed:    true,
				Message:   fmt.Sprintf("%s: %s set correctly", target, rule.Name),
			})
		}
	}
	return results
}
