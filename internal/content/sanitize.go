package content

import "regexp"

var (
	scriptElement = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	iframeElement = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`)
	danglingTag   = regexp.MustCompile(`(?i)</?(?:script|iframe)\b[^>]*>`)
	openingTag    = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	javascriptURI = regexp.MustCompile(`(?i)javascript\s*:`)
	inlineHandler = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
)

// Sanitize strips script/iframe elements, and removes javascript: URIs and on*
// attributes from tags. Text between tags is left untouched.
func Sanitize(html string) string {
	out := scriptElement.ReplaceAllString(html, "")
	out = iframeElement.ReplaceAllString(out, "")
	out = danglingTag.ReplaceAllString(out, "")
	return openingTag.ReplaceAllStringFunc(out, sanitizeTag)
}

func sanitizeTag(tag string) string {
	tag = inlineHandler.ReplaceAllString(tag, "")
	return javascriptURI.ReplaceAllString(tag, "")
}
