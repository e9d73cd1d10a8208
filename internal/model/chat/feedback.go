package chat

import "time"

// FeedbackKind distinguishes the thumbs-style quick rating from the full form.
type FeedbackKind string

const (
	FeedbackQuick    FeedbackKind = "quick"
	FeedbackDetailed FeedbackKind = "detailed"
)

// FeedbackRecord is relayed once to the feedback webhook and never retried.
type FeedbackRecord struct {
	MessageID   string       `json:"messageId"`
	SessionID   string       `json:"sessionId"`
	Kind        FeedbackKind `json:"kind"`
	Rating      int          `json:"rating"`
	Helpfulness int          `json:"helpfulness,omitempty"`
	Accuracy    int          `json:"accuracy,omitempty"`
	Clarity     int          `json:"clarity,omitempty"`
	Comment     string       `json:"comment,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}
