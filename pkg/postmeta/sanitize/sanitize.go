package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// Sanitize returns text with every byte sequence that is not valid UTF-8
// removed. All valid characters are kept as-is.
func Sanitize(text string) string {
	return strings.ToValidUTF8(text, "")
}

// StripMarkup extracts the text nodes of an HTML fragment.
// Posts copied from web exports often carry <br> or <p> wrappers.
// If the fragment cannot be parsed the input is returned unchanged.
func StripMarkup(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "div" || n.Data == "li") {
			buf.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String())
}
