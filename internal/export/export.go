// Package export renders a transcript into the downloadable formats offered by
// the chat widget: plain text, a .doc-labelled text file and CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhouzirui/dr-gini/backend/internal/content"
	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
)

// Format names an export flavour.
type Format string

const (
	FormatText Format = "txt"
	FormatDoc  Format = "doc"
	FormatCSV  Format = "csv"
)

var ErrUnknownFormat = errors.New("unknown export format")

const timestampLayout = "2006-01-02 15:04:05"

// File is a rendered export ready to be served as a download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// ParseFormat accepts the query-string spelling of a format; empty means txt.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatDoc:
		return FormatDoc, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Render produces the export file for a session transcript.
func Render(format Format, assistantName string, session chat.Session, messages []chat.Message, now time.Time) (File, error) {
	base := fmt.Sprintf("dr-gini-conversation-%s", now.UTC().Format("2006-01-02"))

	switch format {
	case FormatText:
		return File{
			Name:        base + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(PlainText(assistantName, session, messages, now)),
		}, nil
	case FormatDoc:
		return File{
			Name:        base + ".doc",
			ContentType: "application/msword",
			Body:        []byte(PlainText(assistantName, session, messages, now)),
		}, nil
	case FormatCSV:
		body, err := CSV(assistantName, messages)
		if err != nil {
			return File{}, err
		}
		return File{
			Name:        base + ".csv",
			ContentType: "text/csv; charset=utf-8",
			Body:        body,
		}, nil
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// PlainText renders the transcript as a readable conversation log.
func PlainText(assistantName string, session chat.Session, messages []chat.Message, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Conversation\n", assistantName)
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Exported: %s\n", now.UTC().Format(timestampLayout))
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n\n")

	for _, m := range messages {
		if m.Status == chat.StatusLoading {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", m.CreatedAt.UTC().Format(timestampLayout), speaker(assistantName, m), messageText(m))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// CSV renders one row per message with standard quoting.
func CSV(assistantName string, messages []chat.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"timestamp", "role", "content", "messageId"}); err != nil {
		return nil, err
	}
	for _, m := range messages {
		if m.Status == chat.StatusLoading {
			continue
		}
		row := []string{
			m.CreatedAt.UTC().Format(time.RFC3339),
			speaker(assistantName, m),
			messageText(m),
			m.CorrelationID,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func speaker(assistantName string, m chat.Message) string {
	if m.Role == chat.RoleUser {
		return "You"
	}
	return assistantName
}

func messageText(m chat.Message) string {
	if m.IsHTML {
		return content.HTMLToPlainText(m.Content)
	}
	return m.Content
}
