package coordinator

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrRequestInFlight = errors.New("a request is already in progress")
	ErrCooldown        = errors.New("cooldown window has not elapsed")
	ErrMalformed       = errors.New("malformed webhook response")
)

// CooldownError reports how long the caller must wait before the next send.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", formatTimeLeft(e.Remaining))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldown
}

const apologyPrefix = "Sorry, I'm having trouble processing your request. "

// CooldownNotice is the throttle copy shown when a send arrives too early.
func CooldownNotice(remaining time.Duration) string {
	return fmt.Sprintf("Please wait %s before sending another message.", formatTimeLeft(remaining))
}

// formatTimeLeft renders a duration as mm:ss, rounding partial seconds up.
func formatTimeLeft(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(math.Ceil(d.Seconds()))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// failureCopy maps a send failure onto the user-facing error text.
func failureCopy(err error, timeout time.Duration) string {
	if errors.Is(err, ErrMalformed) {
		return apologyPrefix + "There was a formatting issue with the response."
	}

	werr, ok := webhook.AsError(err)
	if !ok {
		return apologyPrefix + "Please check your connection and try again."
	}

	switch werr.Kind {
	case webhook.KindTimeout:
		return apologyPrefix + fmt.Sprintf("The request timed out after %d seconds. Please try a shorter query.", int(timeout.Round(time.Second).Seconds()))
	case webhook.KindAborted:
		return apologyPrefix + "The request was cancelled before a reply arrived."
	case webhook.KindHTTPStatus:
		switch werr.StatusCode {
		case http.StatusNotFound:
			return apologyPrefix + "The AI service is temporarily unavailable."
		case http.StatusMethodNotAllowed:
			return apologyPrefix + "The AI service rejected the request method. Please check the webhook configuration."
		case http.StatusInternalServerError:
			return apologyPrefix + "There was a server error. Please try again."
		default:
			return apologyPrefix + fmt.Sprintf("The AI service returned an unexpected status (%d).", werr.StatusCode)
		}
	default:
		return apologyPrefix + "Please check your connection and try again."
	}
}
