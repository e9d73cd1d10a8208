// Package content formats and cleans the HTML fragments rendered in the chat
// transcript.
//
// Sanitize is a best-effort safety floor. It removes the constructs the webhook
// has been seen to emit by accident (script and iframe elements, javascript:
// URIs, inline event handlers) but it is not an allow-list sanitizer and must
// not be treated as a security boundary.
package content
