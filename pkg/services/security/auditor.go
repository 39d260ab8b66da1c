package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
)

// Auditor detects security misconfiguration and accidental secret
// exposure in build output and captured HTTP responses. Every check is
// a pure function of its inputs: re-running against unchanged artifacts
// produces identical results.
type Auditor struct {
	headerRules    []HeaderRule
	secretPatterns []secretPattern
}

func NewAuditor() *Auditor {
	return &Auditor{
		headerRules:    defaultHeaderRules(),
		secretPatterns: defaultSecretPatterns(),
	}
}

var mixedContentPattern = regexp.MustCompile(`(?i)(?:src|href)=["'](http://[^"']+)["']`)

// CheckMixedContent flags plain-http resource references in a page
// meant to be served over HTTPS. Browsers actively block mixed content,
// so every reference is Critical.
func (a *Auditor) CheckMixedContent(html string) []domain.CheckResult {
	var results []domain.CheckResult
	for _, m := range mixedContentPattern.FindAllStringSubmatch(html, -1) {
		results = append(results, domain.CheckResult{
			ID:          "security.mixedContent",
			Component:   domain.ComponentSecurity,
			Severity:    domain.SeverityCritical,
			Passed:      false,
			Message:     fmt.Sprintf("page references %s over plain HTTP", m[1]),
			Remediation: "switch the reference to https:// or a protocol-relative URL",
			Details:     map[string]any{"url": m[1]},
		})
	}
	if len(results) == 0 {
		results = append(results, domain.CheckResult{
			ID:        "security.mixedContent",
			Component: domain.ComponentSecurity,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "no mixed-content references",
		})
	}
	return results
}

// advisory is a known-vulnerable version spot check. This is a fixed
// heuristic table, not a vulnerability database lookup; matches are
// advisory only.
type advisory struct {
	Package  string
	Affected *regexp.Regexp
	Note     string
}

var knownAdvisories = []advisory{
	{"lodash", regexp.MustCompile(`^[~^]?4\.17\.(1?[0-9]|20)$`), "prototype pollution fixed in 4.17.21"},
	{"minimist", regexp.MustCompile(`^[~^]?(0\.|1\.2\.[0-5]$)`), "prototype pollution fixed in 1.2.6"},
	{"node-fetch", regexp.MustCompile(`^[~^]?2\.([0-5]\.|6\.[0-6]$)`), "exposure of sensitive headers fixed in 2.6.7"},
	{"axios", regexp.MustCompile(`^[~^]?0\.2[01]\.`), "SSRF fixed in 0.21.2"},
}

// CheckDependencyAdvisories matches declared dependency versions in
// package.json against the fixed advisory table. Missing package.json
// is fine: an artifact directory usually does not carry one.
func (a *Auditor) CheckDependencyAdvisories(root string) []domain.CheckResult {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return []domain.CheckResult{{
			ID:        "security.dependency.advisories",
			Component: domain.ComponentSecurity,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "no package.json to spot-check",
		}}
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return []domain.CheckResult{{
			ID:        "security.dependency.advisories",
			Component: domain.ComponentSecurity,
			Severity:  domain.SeverityWarning,
			Passed:    false,
			Message:   fmt.Sprintf("package.json is not valid JSON: %v", err),
		}}
	}

	var results []domain.CheckResult
	for _, deps := range []map[string]string{manifest.Dependencies, manifest.DevDependencies} {
		for name, version := range deps {
			for _, adv := range knownAdvisories {
				if adv.Package != name || !adv.Affected.MatchString(strings.TrimSpace(version)) {
					continue
				}
				results = append(results, domain.CheckResult{
					ID:          "security.dependency.advisories",
					Component:   domain.ComponentSecurity,
					Severity:    domain.SeverityWarning,
					Passed:      false,
					Message:     fmt.Sprintf("%s %s matches a known advisory: %s", name, version, adv.Note),
					Remediation: fmt.Sprintf("upgrade %s (%s)", name, adv.Note),
					Details:     map[string]any{"package": name, "version": version},
				})
			}
		}
	}
	if len(results) == 0 {
		results = append(results, domain.CheckResult{
			ID:        "security.dependency.advisories",
			Component: domain.ComponentSecurity,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "no declared dependencies match the advisory spot-check table",
		})
	}
	return results
}

func internalFault(id string, err error) domain.CheckResult {
	return domain.CheckResult{
		ID:        id,
		Component: domain.ComponentSecurity,
		Severity:  domain.SeverityCritical,
		Passed:    false,
		Message:   fmt.Sprintf("check failed internally: %v", err),
	}
}
