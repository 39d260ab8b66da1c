package security

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
)

const maxScannableFileSize = 1 << 20 // 1 MiB

// secretPattern names a regex that matches secret-shaped content.
// Matched substrings are never copied into results.
type secretPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

func defaultSecretPatterns() []secretPattern {
	return []secretPattern{
		{"openai_api_key", regexp.MustCompile(`\bsk-[A-Za-z0-9]{32,}\b`)},
		{"github_token", regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`)},
		{"aws_access_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
		{"google_api_key", regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)},
		{"private_key_pem", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
		{"connection_string", regexp.MustCompile(`(?i)\b(?:postgres|postgresql|mysql|mongodb(?:\+srv)?|redis)://[^\s"']+:[^\s"'@]+@`)},
	}
}

var scannableExtensions = map[string]struct{}{
	".js":   {},
	".css":  {},
	".html": {},
	".json": {},
	".map":  {},
	".txt":  {},
}

// sensitiveEntries must never appear inside a published artifact. Their
// presence in the source repo is fine; inside the served output it is a
// release blocker.
var sensitiveEntries = []string{
	".env",
	".env.local",
	".env.production",
	".git",
	"node_modules",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
}

// ScanForSecrets walks text-type build files looking for secret-shaped
// tokens. Matches report only the pattern name and file path; the
// matched substring is redacted so the report cannot re-leak it.
func (a *Auditor) ScanForSecrets(root string) []domain.CheckResult {
	var results []domain.CheckResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if _, ok := scannableExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxScannableFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		for _, p := range a.secretPatterns {
			if !p.Pattern.Match(data) {
				continue
			}
			results = append(results, domain.CheckResult{
				ID:          "security.secret.exposure",
				Component:   domain.ComponentSecurity,
				Severity:    domain.SeverityCritical,
				Passed:      false,
				Message:     fmt.Sprintf("%s contains a %s-shaped token (value redacted)", filepath.ToSlash(rel), p.Name),
				Remediation: "rotate the credential and move it out of the client bundle",
				Details:     map[string]any{"pattern": p.Name, "file": filepath.ToSlash(rel)},
			})
		}
		return nil
	})
	if err != nil {
		return []domain.CheckResult{internalFault("security.secret.exposure", err)}
	}

	if len(results) == 0 {
		results = append(results, domain.CheckResult{
			ID:        "security.secret.exposure",
			Component: domain.ComponentSecurity,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "no secret-shaped tokens found in build output",
		})
	}
	return results
}

// CheckSensitiveFilesExposed verifies none of the sensitive entries sit
// inside the published build output.
func (a *Auditor) CheckSensitiveFilesExposed(root string) []domain.CheckResult {
	var results []domain.CheckResult
	for _, name := range sensitiveEntries {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			continue
		}
		results = append(results, domain.CheckResult{
			ID:          "security.sensitiveFile.exposed",
			Component:   domain.ComponentSecurity,
			Severity:    domain.SeverityCritical,
			Passed:      false,
			Message:     fmt.Sprintf("%s is present inside the published build output", name),
			Remediation: fmt.Sprintf("exclude %s from the artifact before publishing", name),
			Details:     map[string]any{"entry": name},
		})
	}
	if len(results) == 0 {
		results = append(results, domain.CheckResult{
			ID:        "security.sensitiveFile.exposed",
			Component: domain.ComponentSecurity,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "no sensitive files inside the build output",
		})
	}
	return results
}
