package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetRefs_LocalOnlyAndDeduplicated(t *testing.T) {
	html := `<html><head>
<link rel="stylesheet" href="/assets/style.css">
<link rel="preconnect" href="https://fonts.example.com">
<script src="/assets/app.js"></script>
<script src="/assets/app.js"></script>
<img src="data:image/png;base64,AAAA">
<a href="#section">jump</a>
<a href="mailto:team@example.com">mail</a>
<img src="logo.png">
</head></html>`

	refs := NewHTMLInspector().AssetRefs(html)
	assert.Equal(t, []string{"/assets/style.css", "/assets/app.js", "logo.png"}, refs)
}

func TestTagDetection(t *testing.T) {
	inspector := NewHTMLInspector()

	assert.True(t, inspector.HasViewportMeta(`<meta name="viewport" content="width=device-width">`))
	assert.False(t, inspector.HasViewportMeta(`<meta name="description" content="x">`))

	assert.True(t, inspector.HasRootMount(`<div id="root"></div>`))
	assert.True(t, inspector.HasRootMount(`<div class="shell" id="app"></div>`))
	assert.False(t, inspector.HasRootMount(`<div id="footer"></div>`))

	assert.True(t, inspector.HasManifestLink(`<link rel="manifest" href="manifest.json">`))
	assert.False(t, inspector.HasManifestLink(`<link rel="stylesheet" href="a.css">`))

	assert.True(t, inspector.HasModuleScript(`<script type="module" src="/a.js"></script>`))
	assert.False(t, inspector.HasModuleScript(`<script src="/a.js"></script>`))

	assert.True(t, inspector.HasPreconnectHint(`<link rel="preconnect" href="https://x">`))
	assert.True(t, inspector.HasPreconnectHint(`<link rel="dns-prefetch" href="https://x">`))
	assert.False(t, inspector.HasPreconnectHint(`<link rel="icon" href="i.png">`))
}

func TestTagDetection_SingleQuotes(t *testing.T) {
	inspector := NewHTMLInspector()
	assert.True(t, inspector.HasViewportMeta(`<meta name='viewport' content='width=device-width'>`))
	assert.True(t, inspector.HasManifestLink(`<link rel='manifest' href='manifest.json'>`))
}
