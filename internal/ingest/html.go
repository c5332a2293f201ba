package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements break text flow; inline elements do not
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "tr": true, "td": true, "th": true, "blockquote": true,
	"pre": true, "section": true, "article": true, "header": true, "footer": true,
	"figcaption": true, "dd": true, "dt": true,
}

// VisibleText returns the human-visible text of an HTML fragment with
// whitespace collapsed. Inline markup is removed without adding spaces so
// "is <b>blue</b>." stays "is blue.".
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			// Skip script, style, noscript tags
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			}
			if blockElements[n.Data] {
				buf.WriteString(" ")
				defer buf.WriteString(" ")
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
