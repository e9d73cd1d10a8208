package content

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ImagePlaceholder replaces <img> elements in plain-text renderings.
const ImagePlaceholder = "[Image]"

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

// HTMLToPlainText flattens a transcript fragment for export: block elements
// become line breaks, list items get a bullet, inline formatting is unwrapped
// and images become ImagePlaceholder.
func HTMLToPlainText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return strings.TrimSpace(src)
	}

	var b strings.Builder
	for _, node := range doc.Find("body").Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			writePlain(&b, child)
		}
	}

	return tidyPlain(b.String())
}

func writePlain(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.Data {
	case "script", "style", "head", "title":
		return
	case "br":
		b.WriteString("\n")
		return
	case "img":
		b.WriteString(ImagePlaceholder)
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		b.WriteString("\n\n")
		writeChildren(b, n)
		b.WriteString("\n\n")
	case "li":
		b.WriteString("\n" + BulletGlyph + " ")
		writeChildren(b, n)
		b.WriteString("\n")
	case "p", "div", "section", "article", "ul", "ol", "pre", "blockquote", "table", "tr", "figure", "figcaption":
		b.WriteString("\n")
		writeChildren(b, n)
		b.WriteString("\n")
	case "td", "th":
		writeChildren(b, n)
		b.WriteString("\t")
	default:
		writeChildren(b, n)
	}
}

func writeChildren(b *strings.Builder, n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		writePlain(b, child)
	}
}

func tidyPlain(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	out := strings.Join(lines, "\n")
	out = excessNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
