package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	out := Render("# Hello\n\nSome **bold** text")

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "Hello</h1>")
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestRenderStripsScripts(t *testing.T) {
	out := Render("hi <script>alert('x')</script> <a href=\"javascript:alert(1)\">link</a>")

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}

func TestRenderExternalLinks(t *testing.T) {
	out := Render("[site](https://example.com)")

	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "noreferrer")
}
