package content

import (
	"regexp"
	"strings"
)

var (
	headingLine  = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
	bulletLine   = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	boldSpan     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicSpan   = regexp.MustCompile(`\*([^*\s](?:[^*]*[^*\s])?)\*`)
	formulaToken = regexp.MustCompile(`\b(?:[A-Z][a-z]?\d*)+\b`)
	elementCount = regexp.MustCompile(`([A-Z][a-z]?)(\d+)`)
	caretPower   = regexp.MustCompile(`\^(-?\d+)`)
)

// BulletGlyph prefixes list items in both the HTML and plain-text renderings.
const BulletGlyph = "•"

// LightMarkdownToHTML converts the lightweight markdown the webhook emits into
// HTML. Blank lines separate paragraphs, single newlines become <br>.
// Input text is escaped first, so the result only contains tags produced here.
func LightMarkdownToHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var blocks []string
	var paragraph []string
	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		blocks = append(blocks, "<p>"+strings.Join(paragraph, "<br>")+"</p>")
		paragraph = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if m := headingLine.FindStringSubmatch(trimmed); m != nil {
			flush()
			blocks = append(blocks, "<h3>"+formatInline(m[1])+"</h3>")
			continue
		}
		if m := bulletLine.FindStringSubmatch(trimmed); m != nil {
			paragraph = append(paragraph, BulletGlyph+" "+formatInline(m[1]))
			continue
		}
		paragraph = append(paragraph, formatInline(trimmed))
	}
	flush()

	return strings.Join(blocks, "\n")
}

func formatInline(s string) string {
	s = EscapeText(s)
	s = boldSpan.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicSpan.ReplaceAllString(s, "<em>$1</em>")
	s = formulaToken.ReplaceAllStringFunc(s, subscriptFormula)
	s = caretPower.ReplaceAllString(s, "<sup>$1</sup>")
	return s
}

// subscriptFormula only touches tokens that carry a digit, so plain capitalised
// words are left alone.
func subscriptFormula(token string) string {
	if !strings.ContainsAny(token, "0123456789") {
		return token
	}
	return elementCount.ReplaceAllString(token, "$1<sub>$2</sub>")
}
