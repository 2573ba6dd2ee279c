package resumepdf

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	styleBlockRe     = regexp.MustCompile(`(?i)<style[\s\S]*?</style>`)
	stylesheetLinkRe = regexp.MustCompile(`(?i)<link\b[^>]*rel=["']?stylesheet["']?[^>]*>`)
)

// SanitizeMarkup removes every embedded stylesheet from markup: each
// <style>…</style> block and each <link rel="stylesheet"> element. Matching
// is case-insensitive and non-greedy, so text between two style blocks is
// kept. Everything else, inline style attributes included, is left untouched.
func SanitizeMarkup(markup string) string {
	if markup == "" {
		return markup
	}
	cleaned := styleBlockRe.ReplaceAllString(markup, "")
	return stylesheetLinkRe.ReplaceAllString(cleaned, "")
}

// MarkupTitle returns the trimmed text of the first <title> element in
// markup, or "" if there is none.
func MarkupTitle(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var title string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}
