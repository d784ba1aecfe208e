package testhelpers

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TemplateRenderer renders templ components and asserts on the markup
type TemplateRenderer struct {
	t    *testing.T
	html string
}

// NewTemplateRenderer creates a new template renderer for testing
func NewTemplateRenderer(t *testing.T) *TemplateRenderer {
	return &TemplateRenderer{t: t}
}

// Render renders a component and stores the HTML
func (r *TemplateRenderer) Render(component templ.Component) *TemplateRenderer {
	r.t.Helper()
	var buf bytes.Buffer
	require.NoError(r.t, component.Render(context.Background(), &buf), "failed to render component")
	r.html = buf.String()
	return r
}

// HTML returns the rendered markup
func (r *TemplateRenderer) HTML() string {
	return r.html
}

// AssertContains checks that the markup contains substring
func (r *TemplateRenderer) AssertContains(substring string) *TemplateRenderer {
	r.t.Helper()
	assert.Contains(r.t, r.html, substring)
	return r
}

// AssertNotContains checks that the markup does not contain substring
func (r *TemplateRenderer) AssertNotContains(substring string) *TemplateRenderer {
	r.t.Helper()
	assert.NotContains(r.t, r.html, substring)
	return r
}

// AssertHasElement checks for an element with the given tag
func (r *TemplateRenderer) AssertHasElement(tagName string) *TemplateRenderer {
	r.t.Helper()
	assert.Regexp(r.t, `<`+tagName+`[\s>]`, r.html, "expected a <%s> element", tagName)
	return r
}

// AssertHasElementWithID checks for an element with the given id
func (r *TemplateRenderer) AssertHasElementWithID(id string) *TemplateRenderer {
	r.t.Helper()
	assert.Contains(r.t, r.html, `id="`+id+`"`)
	return r
}

// AssertFormAction checks for a form posting to action
func (r *TemplateRenderer) AssertFormAction(action string) *TemplateRenderer {
	r.t.Helper()
	assert.Regexp(r.t, `<form[^>]*action="`+regexp.QuoteMeta(action)+`"`, r.html)
	return r
}

// AssertInputValue checks for an input named name carrying value
func (r *TemplateRenderer) AssertInputValue(name, value string) *TemplateRenderer {
	r.t.Helper()
	n, v := regexp.QuoteMeta(name), regexp.QuoteMeta(value)
	pattern := `<input[^>]*(name="` + n + `"[^>]*value="` + v + `"|value="` + v + `"[^>]*name="` + n + `")`
	assert.Regexp(r.t, pattern, r.html)
	return r
}

// AssertHasDatastarAttribute checks for a data-* attribute with the given value
func (r *TemplateRenderer) AssertHasDatastarAttribute(attribute, value string) *TemplateRenderer {
	r.t.Helper()
	assert.Contains(r.t, r.html, `data-`+attribute+`="`+value+`"`)
	return r
}

// AssertMatches checks the markup against a regular expression
func (r *TemplateRenderer) AssertMatches(pattern string) *TemplateRenderer {
	r.t.Helper()
	assert.Regexp(r.t, pattern, r.html)
	return r
}

// AssertElementCount checks how many tagName elements were rendered
func (r *TemplateRenderer) AssertElementCount(tagName string, want int) *TemplateRenderer {
	r.t.Helper()
	assert.Equal(r.t, want, r.CountElements(tagName), "number of <%s> elements", tagName)
	return r
}

// CountElements counts occurrences of a tag
func (r *TemplateRenderer) CountElements(tagName string) int {
	return len(regexp.MustCompile(`<` + tagName + `[\s>]`).FindAllString(r.html, -1))
}

// AssertNotEmpty checks that something was rendered
func (r *TemplateRenderer) AssertNotEmpty() *TemplateRenderer {
	r.t.Helper()
	assert.NotEmpty(r.t, strings.TrimSpace(r.html))
	return r
}

var (
	openTag  = regexp.MustCompile(`<(\w+)(?:\s[^>]*)?>`)
	closeTag = regexp.MustCompile(`</(\w+)>`)
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// AssertValid checks that non-void tags are balanced
func (r *TemplateRenderer) AssertValid() *TemplateRenderer {
	r.t.Helper()
	counts := make(map[string]int)
	for _, m := range openTag.FindAllStringSubmatch(r.html, -1) {
		if !voidElements[m[1]] {
			counts[m[1]]++
		}
	}
	for _, m := range closeTag.FindAllStringSubmatch(r.html, -1) {
		counts[m[1]]--
	}
	for tag, n := range counts {
		assert.Zero(r.t, n, "unbalanced <%s>", tag)
	}
	return r
}
