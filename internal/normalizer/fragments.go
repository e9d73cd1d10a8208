package normalizer

import (
	"fmt"

	"github.com/zhouzirui/dr-gini/backend/internal/content"
)

// Problem labels a Response whose HTML is a degraded or error fragment.
type Problem string

const (
	ProblemNone     Problem = ""
	ProblemTooShort Problem = "content_too_short"
	ProblemParse    Problem = "parse_error"
	ProblemImage    Problem = "image_error"
)

// TooShortFragment replaces responses whose visible text is below the minimum length.
const TooShortFragment = `<div class="response-error"><p>The response was too short to display. Please try rephrasing your question.</p></div>`

func parseErrorFragment(message string) string {
	return fmt.Sprintf(`<div class="response-error"><p><strong>Error processing response:</strong> %s</p></div>`,
		content.EscapeText(message))
}

func imageErrorFragment(message string) string {
	return fmt.Sprintf(`<div class="image-error"><p><strong>Image generation failed:</strong> %s</p></div>`,
		content.EscapeText(message))
}
