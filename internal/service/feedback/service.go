// Package feedback relays user ratings of bot replies to the feedback webhook.
// Delivery is fire-and-forget: failures are logged and never surfaced.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
)

var (
	ErrInvalidKind     = errors.New("feedback kind must be quick or detailed")
	ErrInvalidRating   = errors.New("feedback rating out of range")
	ErrMessageRequired = errors.New("message id and session id are required")
	ErrNotEligible     = errors.New("message does not accept feedback")
)

const maxCommentLength = 2000

// Lookup resolves the rated message by its correlation id.
type Lookup interface {
	FindByCorrelation(ctx context.Context, sessionID, correlationID string) (chat.Message, error)
}

// Config describes the feedback endpoint.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Service validates feedback and posts it in the background.
type Service struct {
	client *webhook.Client
	lookup Lookup
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewService returns a relay. With an empty URL records are validated and
// logged but not delivered.
func NewService(cfg Config, lookup Lookup) *Service {
	s := &Service{lookup: lookup, now: time.Now}
	if strings.TrimSpace(cfg.URL) == "" {
		return s
	}

	var opts []webhook.Option
	if cfg.APIKey != "" {
		opts = append(opts,
			webhook.WithHeader("apikey", cfg.APIKey),
			webhook.WithHeader("Authorization", "Bearer "+cfg.APIKey),
		)
	}
	s.client = webhook.NewClient(cfg.URL, cfg.Timeout, opts...)
	return s
}

// Enabled reports whether a feedback endpoint is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Submit validates rec and schedules delivery. It returns the record as it
// will be sent.
func (s *Service) Submit(ctx context.Context, rec chat.FeedbackRecord) (chat.FeedbackRecord, error) {
	if err := validate(rec); err != nil {
		return chat.FeedbackRecord{}, err
	}

	if s.lookup != nil {
		msg, err := s.lookup.FindByCorrelation(ctx, rec.SessionID, rec.MessageID)
		if err != nil {
			return chat.FeedbackRecord{}, fmt.Errorf("%w: %v", ErrNotEligible, err)
		}
		if !msg.FeedbackEligible() {
			return chat.FeedbackRecord{}, ErrNotEligible
		}
	}

	rec.Comment = truncateComment(strings.TrimSpace(rec.Comment), maxCommentLength)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}

	if s.client == nil {
		log.Printf("[feedback] no endpoint configured, dropping %s feedback for message=%s", rec.Kind, rec.MessageID)
		return rec, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(context.WithoutCancel(ctx), rec)
	}()
	return rec, nil
}

// Wait blocks until in-flight deliveries finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) deliver(ctx context.Context, rec chat.FeedbackRecord) {
	if _, err := s.client.Post(ctx, rec); err != nil {
		log.Printf("[feedback] delivery failed for message=%s session=%s: %v", rec.MessageID, rec.SessionID, err)
		return
	}
	log.Printf("[feedback] delivered %s feedback for message=%s", rec.Kind, rec.MessageID)
}

// truncateComment cuts s to at most limit bytes without splitting a rune.
func truncateComment(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func validate(rec chat.FeedbackRecord) error {
	if strings.TrimSpace(rec.MessageID) == "" || strings.TrimSpace(rec.SessionID) == "" {
		return ErrMessageRequired
	}

	switch rec.Kind {
	case chat.FeedbackQuick:
		if rec.Rating != 1 && rec.Rating != -1 {
			return fmt.Errorf("%w: quick rating must be 1 or -1", ErrInvalidRating)
		}
	case chat.FeedbackDetailed:
		if rec.Rating < 1 || rec.Rating > 5 {
			return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidRating)
		}
		for name, v := range map[string]int{"helpfulness": rec.Helpfulness, "accuracy": rec.Accuracy, "clarity": rec.Clarity} {
			if v < 0 || v > 5 {
				return fmt.Errorf("%w: %s must be between 1 and 5", ErrInvalidRating, name)
			}
		}
	default:
		return ErrInvalidKind
	}
	return nil
}
