package inspect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
)

// webManifest is the subset of the W3C Web App Manifest the inspector
// cares about. Unknown fields are ignored.
type webManifest struct {
	Name      string         `json:"name"`
	ShortName string         `json:"short_name"`
	StartURL  string         `json:"start_url"`
	Display   string         `json:"display"`
	Icons     []manifestIcon `json:"icons"`
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// ValidateManifest checks manifest.json for the required PWA fields.
// Malformed JSON is Critical, not Fatal: the rest of the pipeline still
// runs so the report stays complete.
func (i *Inspector) ValidateManifest() []domain.CheckResult {
	data, err := os.ReadFile(filepath.Join(i.root, "manifest.json"))
	if err != nil {
		return []domain.CheckResult{{
			ID:          "manifest.readable",
			Component:   domain.ComponentArtifact,
			Severity:    domain.SeverityCritical,
			Passed:      false,
			Message:     fmt.Sprintf("cannot read manifest.json: %v", err),
			Remediation: "ship a manifest.json in the build output",
		}}
	}

	var manifest webManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return []domain.CheckResult{{
			ID:        "manifest.parse",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("manifest.json is not valid JSON: %v", err),
		}}
	}

	results := []domain.CheckResult{{
		ID:        "manifest.parse",
		Component: domain.ComponentArtifact,
		Severity:  domain.SeverityInfo,
		Passed:    true,
		Message:   "manifest.json parsed",
	}}

	fields := []struct {
		id    string
		name  string
		value string
	}{
		{"manifest.name.present", "name", manifest.Name},
		{"manifest.short_name.present", "short_name", manifest.ShortName},
		{"manifest.start_url.present", "start_url", manifest.StartURL},
		{"manifest.display.present", "display", manifest.Display},
	}
	for _, f := range fields {
		r := domain.CheckResult{
			ID:        f.id,
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   fmt.Sprintf("manifest field %s present", f.name),
		}
		if strings.TrimSpace(f.value) == "" {
			r.Severity = domain.SeverityCritical
			r.Passed = false
			r.Message = fmt.Sprintf("manifest field %s is missing or empty", f.name)
			r.Remediation = fmt.Sprintf("add the required %s field to manifest.json", f.name)
		}
		results = append(results, r)
	}

	if len(manifest.Icons) == 0 {
		results = append(results, domain.CheckResult{
			ID:          "manifest.icons.present",
			Component:   domain.ComponentArtifact,
			Severity:    domain.SeverityCritical,
			Passed:      false,
			Message:     "manifest declares no icons",
			Remediation: "declare at least one icon (192x192 and 512x512 are the usual set)",
		})
		return results
	}

	results = append(results, domain.CheckResult{
		ID:        "manifest.icons.present",
		Component: domain.ComponentArtifact,
		Severity:  domain.SeverityInfo,
		Passed:    true,
		Message:   fmt.Sprintf("manifest declares %d icon(s)", len(manifest.Icons)),
		Details:   map[string]any{"icons": len(manifest.Icons)},
	})

	for _, icon := range manifest.Icons {
		target := filepath.Join(i.root, filepath.FromSlash(strings.TrimPrefix(icon.Src, "/")))
		if _, err := os.Stat(target); err != nil {
			results = append(results, domain.CheckResult{
				ID:          "manifest.icon.fileExists",
				Component:   domain.ComponentArtifact,
				Severity:    domain.SeverityCritical,
				Passed:      false,
				Message:     fmt.Sprintf("manifest icon %s does not exist in the build output", icon.Src),
				Remediation: "ship the icon file with the build, or fix the src path",
				Details:     map[string]any{"src": icon.Src, "sizes": icon.Sizes},
			})
			continue
		}
		results = append(results, domain.CheckResult{
			ID:        "manifest.icon.fileExists",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   fmt.Sprintf("manifest icon %s exists", icon.Src),
		})
	}
	return results
}
