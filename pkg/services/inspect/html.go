package inspect

import (
	"regexp"
	"strings"
)

// HTMLInspector answers structural questions about a built HTML page.
// The default implementation is regex based; check logic only depends
// on this interface so a real parser can be substituted later.
type HTMLInspector interface {
	HasViewportMeta(html string) bool
	HasRootMount(html string) bool
	HasManifestLink(html string) bool
	HasModuleScript(html string) bool
	HasPreconnectHint(html string) bool
	AssetRefs(html string) []string
}

type regexHTMLInspector struct{}

// NewHTMLInspector returns the default regex-based inspector.
func NewHTMLInspector() HTMLInspector {
	return regexHTMLInspector{}
}

var (
	viewportPattern   = regexp.MustCompile(`(?i)<meta[^>]+name=["']viewport["']`)
	rootMountPattern  = regexp.MustCompile(`(?i)<div[^>]+id=["'](root|app)["']`)
	manifestPattern   = regexp.MustCompile(`(?i)<link[^>]+rel=["']manifest["']`)
	moduleScriptRe    = regexp.MustCompile(`(?i)<script[^>]+type=["']module["']`)
	preconnectPattern = regexp.MustCompile(`(?i)<link[^>]+rel=["'](preconnect|dns-prefetch)["']`)
	assetRefPattern   = regexp.MustCompile(`(?i)(?:src|href)=["']([^"']+)["']`)
)

func (regexHTMLInspector) HasViewportMeta(html string) bool {
	return viewportPattern.MatchString(html)
}

func (regexHTMLInspector) HasRootMount(html string) bool {
	return rootMountPattern.MatchString(html)
}

func (regexHTMLInspector) HasManifestLink(html string) bool {
	return manifestPattern.MatchString(html)
}

func (regexHTMLInspector) HasModuleScript(html string) bool {
	return moduleScriptRe.MatchString(html)
}

func (regexHTMLInspector) HasPreconnectHint(html string) bool {
	return preconnectPattern.MatchString(html)
}

// AssetRefs returns every local src/href reference in document order,
// deduplicated. External URLs, anchors and data URIs are skipped since
// they never resolve against the build directory.
func (regexHTMLInspector) AssetRefs(html string) []string {
	seen := map[string]struct{}{}
	var refs []string
	for _, m := range assetRefPattern.FindAllStringSubmatch(html, -1) {
		ref := strings.TrimSpace(m[1])
		if ref == "" || !isLocalRef(ref) {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

func isLocalRef(ref string) bool {
	switch {
	case strings.HasPrefix(ref, "http://"),
		strings.HasPrefix(ref, "https://"),
		strings.HasPrefix(ref, "//"),
		strings.HasPrefix(ref, "data:"),
		strings.HasPrefix(ref, "mailto:"),
		strings.HasPrefix(ref, "tel:"),
		strings.HasPrefix(ref, "#"):
		return false
	}
	return true
}
