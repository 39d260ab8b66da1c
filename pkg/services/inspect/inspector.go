package inspect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/deploy-gate/pkg/models/domain"
	"github.com/de-tools/deploy-gate/pkg/services/config"
)

// Inspector validates a build output directory against structural and
// content rules without executing any of its code.
type Inspector struct {
	root string
	cfg  config.ArtifactConfig
	html HTMLInspector
}

func NewInspector(root string, cfg config.ArtifactConfig) *Inspector {
	return &Inspector{
		root: root,
		cfg:  cfg,
		html: NewHTMLInspector(),
	}
}

// CheckDirectoryExists is the pipeline's one hard precondition. The
// orchestrator stops all further work when this returns a Fatal result.
func (i *Inspector) CheckDirectoryExists() domain.CheckResult {
	info, err := os.Stat(i.root)
	if err != nil || !info.IsDir() {
		return domain.CheckResult{
			ID:          "artifact.dir.exists",
			Component:   domain.ComponentArtifact,
			Severity:    domain.SeverityFatal,
			Passed:      false,
			Message:     fmt.Sprintf("build directory %s does not exist", i.root),
			Remediation: "run the build step before validating, or pass the correct --build-dir",
		}
	}
	return domain.CheckResult{
		ID:        "artifact.dir.exists",
		Component: domain.ComponentArtifact,
		Severity:  domain.SeverityInfo,
		Passed:    true,
		Message:   fmt.Sprintf("build directory %s exists", i.root),
	}
}

// CheckRequiredFiles verifies every configured file pattern matches at
// least one file in the build directory.
func (i *Inspector) CheckRequiredFiles() []domain.CheckResult {
	var results []domain.CheckResult
	for _, pattern := range i.cfg.RequiredFiles {
		matches, err := filepath.Glob(filepath.Join(i.root, pattern))
		id := "artifact.file." + pattern
		if err != nil {
			results = append(results, domain.CheckResult{
				ID:        id,
				Component: domain.ComponentArtifact,
				Severity:  domain.SeverityCritical,
				Passed:    false,
				Message:   fmt.Sprintf("invalid required-file pattern %q: %v", pattern, err),
			})
			continue
		}
		if len(matches) == 0 {
			results = append(results, domain.CheckResult{
				ID:          id,
				Component:   domain.ComponentArtifact,
				Severity:    domain.SeverityCritical,
				Passed:      false,
				Message:     fmt.Sprintf("required file %s is missing from the build output", pattern),
				Remediation: fmt.Sprintf("add required file %s to the build, or adjust the profile", pattern),
			})
			continue
		}
		results = append(results, domain.CheckResult{
			ID:        id,
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   fmt.Sprintf("%s present (%d match(es))", pattern, len(matches)),
			Details:   map[string]any{"matches": len(matches)},
		})
	}
	return results
}

// ValidateHTMLStructure scans index.html for the tags a deployable PWA
// entry point needs. Missing required tags are Critical; a missing
// preconnect hint is only advisory.
func (i *Inspector) ValidateHTMLStructure() []domain.CheckResult {
	html, err := i.readEntryPoint()
	if err != nil {
		return []domain.CheckResult{{
			ID:        "artifact.html.readable",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityCritical,
			Passed:    false,
			Message:   fmt.Sprintf("cannot read index.html: %v", err),
		}}
	}

	required := []struct {
		id      string
		present bool
		missing string
		hint    string
	}{
		{"artifact.html.viewport", i.html.HasViewportMeta(html),
			"index.html has no viewport meta tag",
			"add <meta name=\"viewport\" ...> for mobile rendering"},
		{"artifact.html.rootMount", i.html.HasRootMount(html),
			"index.html has no root mount element",
			"add <div id=\"root\"> (or id=\"app\") for the client to mount into"},
		{"artifact.html.manifestLink", i.html.HasManifestLink(html),
			"index.html does not link a web app manifest",
			"add <link rel=\"manifest\" href=\"manifest.json\">"},
		{"artifact.html.moduleScript", i.html.HasModuleScript(html),
			"index.html has no module script reference",
			"reference the bundled entry with <script type=\"module\" ...>"},
	}

	var results []domain.CheckResult
	for _, tag := range required {
		r := domain.CheckResult{
			ID:        tag.id,
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   strings.TrimPrefix(tag.id, "artifact.html.") + " tag present",
		}
		if !tag.present {
			r.Severity = domain.SeverityCritical
			r.Passed = false
			r.Message = tag.missing
			r.Remediation = tag.hint
		}
		results = append(results, r)
	}

	// Recommended, not required.
	if i.html.HasPreconnectHint(html) {
		results = append(results, domain.CheckResult{
			ID:        "artifact.html.preconnect",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "preconnect hint present",
		})
	} else {
		results = append(results, domain.CheckResult{
			ID:          "artifact.html.preconnect",
			Component:   domain.ComponentArtifact,
			Severity:    domain.SeverityWarning,
			Passed:      false,
			Message:     "index.html has no preconnect/dns-prefetch hints",
			Remediation: "add <link rel=\"preconnect\"> for origins the page loads from",
		})
	}
	return results
}

// CheckAssetReferences resolves every local src/href in index.html
// against the build root. A dangling reference breaks at runtime, so
// each one is Critical.
func (i *Inspector) CheckAssetReferences() []domain.CheckResult {
	html, err := i.readEntryPoint()
	if err != nil {
		// ValidateHTMLStructure reports the unreadable entry point as
		// Critical; this check still has to account for itself.
		return []domain.CheckResult{{
			ID:        "artifact.asset.resolves",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    false,
			Message:   fmt.Sprintf("skipped: index.html is not readable: %v", err),
		}}
	}

	var results []domain.CheckResult
	for _, ref := range i.html.AssetRefs(html) {
		target := filepath.Join(i.root, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
		if _, err := os.Stat(target); err != nil {
			results = append(results, domain.CheckResult{
				ID:          "artifact.asset.resolves",
				Component:   domain.ComponentArtifact,
				Severity:    domain.SeverityCritical,
				Passed:      false,
				Message:     fmt.Sprintf("index.html references %s which does not exist in the build output", ref),
				Remediation: "rebuild, or fix the reference so the asset ships with the artifact",
				Details:     map[string]any{"ref": ref},
			})
		}
	}
	if len(results) == 0 {
		results = append(results, domain.CheckResult{
			ID:        "artifact.asset.resolves",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   "all local asset references resolve",
		})
	}
	return results
}

// CheckBundleSize sums asset sizes against the configured thresholds.
// Size is advisory, never Critical.
func (i *Inspector) CheckBundleSize() []domain.CheckResult {
	assetsDir := filepath.Join(i.root, i.cfg.AssetsDir)

	var total int64
	var oversized []string
	err := filepath.WalkDir(assetsDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		if i.cfg.ChunkSizeBytes > 0 && info.Size() > i.cfg.ChunkSizeBytes {
			name, relErr := filepath.Rel(assetsDir, path)
			if relErr != nil {
				name = entry.Name()
			}
			oversized = append(oversized, filepath.ToSlash(name))
		}
		return nil
	})
	if err != nil {
		return []domain.CheckResult{{
			ID:        "artifact.bundle.totalSize",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityWarning,
			Passed:    false,
			Message:   fmt.Sprintf("assets directory %s is not readable: %v", i.cfg.AssetsDir, err),
		}}
	}

	var results []domain.CheckResult
	if i.cfg.TotalSizeBytes > 0 && total > i.cfg.TotalSizeBytes {
		results = append(results, domain.CheckResult{
			ID:          "artifact.bundle.totalSize",
			Component:   domain.ComponentArtifact,
			Severity:    domain.SeverityWarning,
			Passed:      false,
			Message:     fmt.Sprintf("bundle totals %d bytes, over the %d byte threshold", total, i.cfg.TotalSizeBytes),
			Remediation: "split large dependencies or enable code splitting",
			Details:     map[string]any{"total_bytes": total, "threshold_bytes": i.cfg.TotalSizeBytes},
		})
	} else {
		results = append(results, domain.CheckResult{
			ID:        "artifact.bundle.totalSize",
			Component: domain.ComponentArtifact,
			Severity:  domain.SeverityInfo,
			Passed:    true,
			Message:   fmt.Sprintf("bundle totals %d bytes", total),
			Details:   map[string]any{"total_bytes": total},
		})
	}

	for _, name := range oversized {
		results = append(results, domain.CheckResult{
			ID:          "artifact.bundle.chunkSize",
			Component:   domain.ComponentArtifact,
			Severity:    domain.SeverityWarning,
			Passed:      false,
			Message:     fmt.Sprintf("chunk %s exceeds the %d byte threshold", name, i.cfg.ChunkSizeBytes),
			Remediation: "consider splitting the chunk or lazy-loading it",
			Details:     map[string]any{"chunk": name},
		})
	}
	return results
}

func (i *Inspector) readEntryPoint() (string, error) {
	data, err := os.ReadFile(filepath.Join(i.root, "index.html"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
