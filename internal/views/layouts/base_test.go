package layouts

import (
	"context"
	"io"
	"testing"

	"github.com/a-h/templ"

	"drawingliar/internal/testhelpers"
)

func TestBaseLayout(t *testing.T) {
	renderer := testhelpers.NewTemplateRenderer(t)

	t.Run("renders with title", func(t *testing.T) {
		renderer.Render(Base("Test Page Title")).
			AssertNotEmpty().
			AssertValid().
			AssertContains("<title>Test Page Title</title>").
			AssertHasElement("html").
			AssertHasElement("head").
			AssertHasElement("body").
			AssertContains("<!doctype html>")
	})

	t.Run("includes viewport meta tag", func(t *testing.T) {
		renderer.Render(Base("Mobile Test")).
			AssertContains(`name="viewport"`).
			AssertContains(`content="width=device-width, initial-scale=1.0"`)
	})

	t.Run("includes datastar script", func(t *testing.T) {
		renderer.Render(Base("Datastar Test")).
			AssertHasElement("script").
			AssertContains(`src="` + DatastarScript + `"`)
	})

	t.Run("has proper structure", func(t *testing.T) {
		renderer.Render(Base("Structure Test")).
			AssertMatches(`(?s)<!doctype html>.*<html.*>.*<head>.*</head>.*<body>.*</body>.*</html>`).
			AssertMatches(`(?s)<head>.*<title>Structure Test</title>.*</head>`).
			AssertElementCount("html", 1).
			AssertElementCount("head", 1).
			AssertElementCount("body", 1).
			AssertElementCount("style", 1)
	})

	t.Run("renders children inside the container", func(t *testing.T) {
		child := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, `<p id="child">hi</p>`)
			return err
		})
		page := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			return Base("Children").Render(templ.WithChildren(ctx, child), w)
		})

		renderer.Render(page).
			AssertValid().
			AssertMatches(`(?s)<main class="container"><p id="child">hi</p></main>`)
	})

	t.Run("escapes HTML in title", func(t *testing.T) {
		renderer.Render(Base("<script>alert('xss')</script>")).
			AssertNotContains("<script>alert('xss')</script>").
			AssertContains("&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;")
	})
}
