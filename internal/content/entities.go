package content

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var attributeEntities = strings.NewReplacer(
	`\"`, `"`,
	`\'`, `'`,
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
	"&amp;", "&",
)

// UnescapeAttribute reverses the escaping n8n applies to iframe srcdoc values:
// backslash-escaped quotes and the HTML entities for quotes, angle brackets,
// ampersand and nbsp.
func UnescapeAttribute(value string) string {
	return attributeEntities.Replace(value)
}

var unicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

var literalEscapes = strings.NewReplacer(
	`\r\n`, "\n",
	`\n`, "\n",
	`\t`, "\t",
	`\"`, `"`,
	`\'`, "'",
)

// UnescapeLiterals turns JSON-style escapes that leaked into a string payload
// (\n, \uXXXX, \", \') back into their characters.
func UnescapeLiterals(s string) string {
	s = unicodeEscape.ReplaceAllStringFunc(s, func(match string) string {
		code, err := strconv.ParseUint(match[2:], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(code))
	})
	return literalEscapes.Replace(s)
}

// EscapeText escapes text for literal inclusion in HTML.
func EscapeText(s string) string {
	return html.EscapeString(s)
}
