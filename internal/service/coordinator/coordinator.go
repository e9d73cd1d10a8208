// Package coordinator owns the send lifecycle of a chat session: input guards,
// single-flight and cooldown, webhook dispatch and transcript updates.
package coordinator

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/dr-gini/backend/internal/analysis/imagery"
	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/normalizer"
	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
)

// State is the coordinator's position in the send lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateSending       State = "sending"
	StateAwaitingImage State = "awaiting-image"
)

// Mode selects how many webhooks a send talks to.
type Mode string

const (
	// ModeSingle posts to one endpoint that answers with text and images together.
	ModeSingle Mode = "single"
	// ModeDual posts to the text endpoint, then to the image endpoint when the
	// input asks for a structure image.
	ModeDual Mode = "dual"
)

const (
	DefaultCooldown = 180 * time.Second
	DefaultTimeout  = 30 * time.Second
)

// Transcript is the ordered message log a coordinator writes to.
type Transcript interface {
	Append(ctx context.Context, message chat.Message) (chat.Message, error)
	Replace(ctx context.Context, message chat.Message) (chat.Message, error)
}

// Poster sends one envelope to a webhook.
type Poster interface {
	Post(ctx context.Context, payload any) (webhook.Reply, error)
}

// Deps are the collaborators shared by every coordinator.
type Deps struct {
	Transcript Transcript
	Normalizer *normalizer.Normalizer
	Text       Poster
	// Image is only used in ModeDual.
	Image Poster
}

// Options tune the send lifecycle.
type Options struct {
	Mode     Mode
	Cooldown time.Duration
	// Timeout is quoted in the timed-out message; the Poster enforces it.
	Timeout time.Duration
	Now     func() time.Time
	Detect  func(text string) imagery.Result
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeSingle
	}
	if o.Cooldown < 0 {
		o.Cooldown = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Detect == nil {
		o.Detect = imagery.Detect
	}
	return o
}

// Status is the read-only view exposed to the UI layer.
type Status struct {
	SessionID           string     `json:"sessionId"`
	State               State      `json:"state"`
	Mode                Mode       `json:"mode"`
	CooldownRemainingMs int64      `json:"cooldownRemainingMs"`
	LastAcceptedAt      *time.Time `json:"lastAcceptedAt,omitempty"`
}

// Coordinator serialises sends for one session.
type Coordinator struct {
	sessionID string
	deps      Deps
	opts      Options

	mu           sync.Mutex
	state        State
	lastAccepted time.Time
}

// New builds a coordinator for sessionID.
func New(sessionID string, deps Deps, opts Options) *Coordinator {
	opts = opts.withDefaults()
	if opts.Mode == ModeDual && deps.Image == nil {
		log.Printf("[coordinator] session=%s dual mode without an image webhook, using single mode", sessionID)
		opts.Mode = ModeSingle
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.New(normalizer.DefaultOptions())
	}
	return &Coordinator{
		sessionID: sessionID,
		deps:      deps,
		opts:      opts,
		state:     StateIdle,
	}
}

// pending is an accepted send waiting for dispatch.
type pending struct {
	user     chat.Message
	envelope chat.OutgoingEnvelope
}

// Send runs a full send synchronously. Guard violations return ErrEmptyMessage,
// ErrRequestInFlight or a *CooldownError. Webhook failures are recorded in the
// transcript as error messages and also returned.
func (c *Coordinator) Send(ctx context.Context, text string) error {
	p, err := c.accept(ctx, text)
	if err != nil {
		return err
	}
	return c.dispatch(ctx, p)
}

// Submit applies the guards and appends the user message, then dispatches in
// the background. The returned message is the stored user message.
func (c *Coordinator) Submit(ctx context.Context, text string) (chat.Message, error) {
	p, err := c.accept(ctx, text)
	if err != nil {
		return chat.Message{}, err
	}
	go func() {
		if err := c.dispatch(context.WithoutCancel(ctx), p); err != nil {
			log.Printf("[coordinator] session=%s send finished with error: %v", c.sessionID, err)
		}
	}()
	return p.user, nil
}

// Status reports the current state and cooldown.
func (c *Coordinator) Status() Status {
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		SessionID:           c.sessionID,
		State:               c.state,
		Mode:                c.opts.Mode,
		CooldownRemainingMs: c.cooldownRemainingLocked(now).Milliseconds(),
	}
	if !c.lastAccepted.IsZero() {
		at := c.lastAccepted
		st.LastAcceptedAt = &at
	}
	return st
}

func (c *Coordinator) accept(ctx context.Context, text string) (*pending, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	now := c.opts.Now()

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	if remaining := c.cooldownRemainingLocked(now); remaining > 0 {
		c.mu.Unlock()
		c.appendError(ctx, CooldownNotice(remaining))
		return nil, &CooldownError{Remaining: remaining}
	}
	previous := c.lastAccepted
	c.state = StateSending
	c.lastAccepted = now
	c.mu.Unlock()

	messageID := "user_" + uuid.NewString()
	user, err := c.deps.Transcript.Append(ctx, chat.Message{
		SessionID:     c.sessionID,
		Role:          chat.RoleUser,
		Content:       text,
		CorrelationID: messageID,
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.lastAccepted = previous
		c.mu.Unlock()
		return nil, fmt.Errorf("append user message: %w", err)
	}

	return &pending{
		user: user,
		envelope: chat.OutgoingEnvelope{
			Message:   text,
			SessionID: c.sessionID,
			UserID:    fmt.Sprintf("user_%d", now.UnixMilli()),
			MessageID: messageID,
			RequestID: uuid.NewString(),
			Timestamp: now.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

func (c *Coordinator) dispatch(ctx context.Context, p *pending) error {
	defer c.setState(StateIdle)

	log.Printf("[coordinator] session=%s request=%s sending to text webhook", c.sessionID, p.envelope.RequestID)

	reply, err := c.deps.Text.Post(ctx, p.envelope)
	if err == nil {
		resp := c.deps.Normalizer.Normalize(reply.Body, reply.ContentType, normalizer.ChannelText)
		if resp.MalformedJSON {
			err = ErrMalformed
		} else {
			c.appendReply(ctx, resp)
		}
	}
	if err != nil {
		log.Printf("[coordinator] session=%s request=%s text webhook failed: %v", c.sessionID, p.envelope.RequestID, err)
		c.appendError(ctx, failureCopy(err, c.opts.Timeout))
		return err
	}

	if c.opts.Mode != ModeDual {
		return nil
	}
	detection := c.opts.Detect(p.user.Content)
	if !detection.NeedsImage {
		return nil
	}
	return c.dispatchImage(ctx, p, detection)
}

func (c *Coordinator) dispatchImage(ctx context.Context, p *pending, detection imagery.Result) error {
	c.setState(StateAwaitingImage)

	placeholder, err := c.deps.Transcript.Append(ctx, chat.Message{
		SessionID: c.sessionID,
		Role:      chat.RoleBot,
		Content:   fmt.Sprintf("Generating %s structure of %s...", strings.ToUpper(string(detection.ImageType)), detection.Compound),
		Status:    chat.StatusLoading,
	})
	if err != nil {
		return fmt.Errorf("append image placeholder: %w", err)
	}

	envelope := chat.ImageEnvelope{
		OutgoingEnvelope: p.envelope,
		Compound:         detection.Compound,
		ImageType:        string(detection.ImageType),
	}
	envelope.RequestID = uuid.NewString()

	log.Printf("[coordinator] session=%s request=%s requesting %s image of %s (confidence=%s)",
		c.sessionID, envelope.RequestID, detection.ImageType, detection.Compound, detection.Confidence)

	reply, err := c.deps.Image.Post(ctx, envelope)
	if err == nil {
		resp := c.deps.Normalizer.Normalize(reply.Body, reply.ContentType, normalizer.ChannelImage)
		if resp.MalformedJSON {
			err = ErrMalformed
		} else {
			c.replace(ctx, fillReply(placeholder, resp, detection))
			return nil
		}
	}

	log.Printf("[coordinator] session=%s request=%s image webhook failed: %v", c.sessionID, envelope.RequestID, err)
	failed := placeholder
	failed.Content = failureCopy(err, c.opts.Timeout)
	failed.Status = chat.StatusError
	failed.IsError = true
	c.replace(ctx, failed)
	return err
}

func (c *Coordinator) appendReply(ctx context.Context, resp normalizer.Response) {
	msg := fillReply(chat.Message{SessionID: c.sessionID, Role: chat.RoleBot}, resp, imagery.Result{})
	if _, err := c.deps.Transcript.Append(ctx, msg); err != nil {
		log.Printf("[coordinator] session=%s failed to append reply: %v", c.sessionID, err)
	}
}

func (c *Coordinator) appendError(ctx context.Context, text string) {
	_, err := c.deps.Transcript.Append(ctx, chat.Message{
		SessionID: c.sessionID,
		Role:      chat.RoleBot,
		Content:   text,
		IsError:   true,
		Status:    chat.StatusError,
	})
	if err != nil {
		log.Printf("[coordinator] session=%s failed to append error message: %v", c.sessionID, err)
	}
}

func (c *Coordinator) replace(ctx context.Context, msg chat.Message) {
	if _, err := c.deps.Transcript.Replace(ctx, msg); err != nil {
		log.Printf("[coordinator] session=%s failed to replace message %s: %v", c.sessionID, msg.ID, err)
	}
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Coordinator) cooldownRemainingLocked(now time.Time) time.Duration {
	if c.lastAccepted.IsZero() || c.opts.Cooldown <= 0 {
		return 0
	}
	remaining := c.opts.Cooldown - now.Sub(c.lastAccepted)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// fillReply copies a normalized response into msg.
func fillReply(msg chat.Message, resp normalizer.Response, detection imagery.Result) chat.Message {
	msg.IsHTML = true
	msg.Image = nil

	switch {
	case resp.IsImage():
		msg.Content = figureHTML(resp.Image, detection)
		msg.Image = resp.Image
		msg.HasImages = true
	case resp.Problem != normalizer.ProblemNone:
		msg.Content = resp.HTML
		msg.IsError = true
		msg.Status = chat.StatusError
		return msg
	default:
		msg.Content = resp.HTML
		msg.HasImages = hasImages(resp.HTML)
	}

	msg.IsError = false
	msg.Status = chat.StatusSuccess
	msg.CorrelationID = "gini_" + uuid.NewString()
	return msg
}

func hasImages(fragment string) bool {
	return strings.Contains(fragment, "<img") || strings.Contains(fragment, "molecular-structure-display")
}

func figureHTML(img *chat.ImageDescriptor, detection imagery.Result) string {
	compound := img.Metadata.Compound
	if compound == "" {
		compound = detection.Compound
	}
	label := compound
	if detection.ImageType != "" {
		label = fmt.Sprintf("%s structure of %s", strings.ToUpper(string(detection.ImageType)), compound)
	}

	caption := html.EscapeString(compound)
	if img.Metadata.CID != "" {
		caption += " (CID " + html.EscapeString(img.Metadata.CID) + ")"
	}
	if img.Metadata.Source != "" {
		caption += " · " + html.EscapeString(img.Metadata.Source)
	}

	return fmt.Sprintf(`<figure class="molecular-structure-display"><img src="%s" alt="%s"><figcaption>%s</figcaption></figure>`,
		html.EscapeString(img.URL), html.EscapeString(label), caption)
}
