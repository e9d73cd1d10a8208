package chat

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Status tracks a bot placeholder through its loading lifecycle.
type Status string

const (
	StatusNone    Status = ""
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Message is a single transcript entry rendered by the widget.
// CorrelationID is the stable messageId used as the feedback key.
type Message struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"sessionId"`
	Role          Role             `json:"role"`
	Content       string           `json:"content"`
	CreatedAt     time.Time        `json:"createdAt"`
	IsError       bool             `json:"isError,omitempty"`
	IsHTML        bool             `json:"isHTML,omitempty"`
	HasImages     bool             `json:"hasImages,omitempty"`
	CorrelationID string           `json:"correlationId,omitempty"`
	Status        Status           `json:"status,omitempty"`
	Image         *ImageDescriptor `json:"image,omitempty"`
}

// FeedbackEligible reports whether users may rate this message.
func (m Message) FeedbackEligible() bool {
	return m.Role == RoleBot && !m.IsError && m.Status != StatusLoading && m.CorrelationID != ""
}
