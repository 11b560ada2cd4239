// Package htmlsanitize cleans admin-supplied HTML (the site footer) and
// text received from the stats service before it reaches a template.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcOnce sync.Once
	ugc     *bluemonday.Policy
	strict  = bluemonday.StrictPolicy()
)

// policy allows the formatting, links, lists, and tables a footer needs.
func policy() *bluemonday.Policy {
	ugcOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").OnElements("table", "p", "span", "div", "a")
		p.RequireNoFollowOnLinks(true)
		ugc = p
	})
	return ugc
}

// Sanitize strips scripts, event handlers, and unsafe URLs from s.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy().Sanitize(s)
}

// SanitizeToHTML is Sanitize typed for direct use in templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// PlainText removes all markup from s and returns unescaped text suitable
// for html/template, which escapes it again on output.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
