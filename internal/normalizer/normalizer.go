// Package normalizer turns whatever the n8n webhooks return into something the
// transcript can render: an HTML fragment or an image descriptor.
//
// The webhooks have no fixed schema. Rules are tried in order and the first
// match wins:
//
//  1. an <iframe srcdoc="..."> anywhere in the body: the unescaped srcdoc is the HTML
//  2. a body starting with { or [: JSON, looked up through the configured field list
//  3. a body containing block markup (<h2>, <h3>, <p>, <div): literal HTML
//  4. anything else: plain text with light markdown
//
// Normalize never returns an error; failures become visible HTML fragments.
package normalizer

import (
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/zhouzirui/dr-gini/backend/internal/content"
	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
)

// Response is either renderable HTML or an image descriptor.
type Response struct {
	HTML  string
	Image *chat.ImageDescriptor
	// Problem is set when HTML is an error or degraded fragment.
	Problem Problem
	// MalformedJSON is set when the content type promised JSON but the body did not parse.
	MalformedJSON bool
}

// IsImage reports whether the response carries an image descriptor.
func (r Response) IsImage() bool {
	return r.Image != nil
}

// Normalizer applies the dispatch rules with a fixed Options set.
type Normalizer struct {
	opts Options
}

// New returns a Normalizer; zero-valued options fall back to the defaults.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts.withDefaults()}
}

var (
	blockTag     = regexp.MustCompile(`(?i)<(?:h[1-6]|p|div|ul|ol|table|figure|pre|blockquote|section|article)\b[^>]*>`)
	htmlTag      = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	srcdocAttr   = regexp.MustCompile(`(?is)<iframe\b[^>]*?\ssrcdoc\s*=\s*`)
	documentBody = regexp.MustCompile(`(?is)<body\b[^>]*>(.*?)</body\s*>`)
	documentTags = regexp.MustCompile(`(?is)<!DOCTYPE[^>]*>|<head\b[^>]*>.*?</head\s*>|</?html\b[^>]*>|</?body\b[^>]*>`)
	anyTag       = regexp.MustCompile(`<[^>]*>`)
)

// Normalize converts a raw webhook body into a Response.
func (n *Normalizer) Normalize(rawBody, contentTypeHint string, channel Channel) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[normalizer] recovered while normalizing %s response: %v", channel, r)
			resp = Response{HTML: parseErrorFragment(fmt.Sprint(r)), Problem: ProblemParse}
		}
	}()

	if doc, ok := extractSrcdoc(rawBody); ok {
		return n.finish(doc)
	}

	trimmed := strings.TrimSpace(rawBody)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if gjson.Valid(trimmed) {
			return n.fromJSON(gjson.Parse(trimmed), channel)
		}
		log.Printf("[normalizer] %s response looks like JSON but does not parse, falling back to text", channel)
		resp = n.finish(n.render(rawBody))
		resp.MalformedJSON = expectsJSON(contentTypeHint)
		return resp
	}

	// A bare JSON scalar such as "text" is unwrapped.
	if trimmed != "" && gjson.Valid(trimmed) {
		return n.finish(n.render(gjson.Parse(trimmed).String()))
	}

	return n.finish(n.render(rawBody))
}

func (n *Normalizer) fromJSON(root gjson.Result, channel Channel) Response {
	item := root
	if root.IsArray() {
		item = root.Get("0")
		if !item.Exists() {
			return n.finish(prettyJSON(root))
		}
	}

	if channel == ChannelImage && isImagePayload(item) {
		return n.imageResponse(item)
	}

	fields := n.fieldsFor(channel)
	value, ok := firstPresent(item, fields)
	if !ok {
		if item.IsObject() || item.IsArray() {
			return n.finish(prettyJSON(item))
		}
		return n.finish(n.render(item.String()))
	}

	if value.IsObject() {
		if channel == ChannelImage && isImagePayload(value) {
			return n.imageResponse(value)
		}
		nested, ok := firstPresent(value, fields)
		if ok && !nested.IsObject() && !nested.IsArray() {
			return n.finish(n.render(nested.String()))
		}
		return n.finish(prettyJSON(item))
	}
	if value.IsArray() {
		return n.finish(prettyJSON(item))
	}
	return n.finish(n.render(value.String()))
}

func (n *Normalizer) fieldsFor(channel Channel) []string {
	if channel == ChannelImage {
		return n.opts.ImageFields
	}
	return n.opts.TextFields
}

// firstPresent returns the first field holding a non-null, non-blank value.
func firstPresent(obj gjson.Result, fields []string) (gjson.Result, bool) {
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	for _, field := range fields {
		v := obj.Get(field)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.String && strings.TrimSpace(v.Str) == "" {
			continue
		}
		return v, true
	}
	return gjson.Result{}, false
}

// render applies the non-JSON rules to a string payload.
func (n *Normalizer) render(s string) string {
	if doc, ok := extractSrcdoc(s); ok {
		return doc
	}
	if containsBlockHTML(s) {
		return s
	}
	if htmlTag.MatchString(s) {
		inline := strings.TrimSpace(strings.ReplaceAll(content.UnescapeLiterals(s), "\r\n", "\n"))
		return "<p>" + strings.ReplaceAll(inline, "\n", "<br>") + "</p>"
	}
	return content.LightMarkdownToHTML(content.UnescapeLiterals(s))
}

func (n *Normalizer) finish(fragment string) Response {
	out := content.UnescapeLiterals(fragment)
	out = stripDocumentShell(out)
	out = content.Sanitize(out)
	out = strings.TrimSpace(out)

	if visibleLength(out) < n.opts.MinContentLength {
		return Response{HTML: TooShortFragment, Problem: ProblemTooShort}
	}
	return Response{HTML: out}
}

func containsBlockHTML(s string) bool {
	return blockTag.MatchString(s)
}

// extractSrcdoc finds the srcdoc attribute of the first iframe. The attribute
// may be delimited by plain quotes or by backslash-escaped quotes when the
// markup arrived inside a JSON string.
func extractSrcdoc(body string) (string, bool) {
	loc := srcdocAttr.FindStringIndex(body)
	if loc == nil {
		return "", false
	}
	rest := body[loc[1]:]

	var delim string
	switch {
	case strings.HasPrefix(rest, `\"`):
		delim = `\"`
	case strings.HasPrefix(rest, `\'`):
		delim = `\'`
	case strings.HasPrefix(rest, `"`):
		delim = `"`
	case strings.HasPrefix(rest, `'`):
		delim = `'`
	default:
		return "", false
	}

	rest = rest[len(delim):]
	end := strings.Index(rest, delim)
	if end < 0 {
		return "", false
	}
	return content.UnescapeAttribute(rest[:end]), true
}

func stripDocumentShell(s string) string {
	if m := documentBody.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return documentTags.ReplaceAllString(s, "")
}

func visibleLength(fragment string) int {
	if strings.Contains(strings.ToLower(fragment), "<img") {
		return utf8.RuneCountInString(fragment)
	}
	text := html.UnescapeString(anyTag.ReplaceAllString(fragment, ""))
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

func prettyJSON(v gjson.Result) string {
	formatted := strings.TrimSpace(string(pretty.Pretty([]byte(v.Raw))))
	return "<pre>" + content.EscapeText(formatted) + "</pre>"
}

func expectsJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
