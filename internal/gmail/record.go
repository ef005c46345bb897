package gmail

import (
	"errors"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/mulchkit/mulch/internal/mimepart"
)

// EmailRecord is the flattened form of a message written by bundle mode.
type EmailRecord struct {
	ID          string   `json:"id"`
	ThreadID    string   `json:"threadId"`
	Sender      string   `json:"sender"`
	Recipient   string   `json:"recipient"`
	Date        string   `json:"date"`
	Subject     string   `json:"subject"`
	Labels      []string `json:"labels"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// HeaderValue returns the value of the first header called name, compared
// case-insensitively, or "" when there is none.
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// BuildRecord flattens a full message. Label IDs unknown to labels are kept
// as-is. A body that cannot be decoded fails the record with the
// *mimepart.DecodeError wrapped.
func BuildRecord(msg *gmail.Message, labels *LabelIndex) (*EmailRecord, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}

	root := mimepart.FromGmail(msg.Payload)
	body, err := mimepart.PlainTextBody(root)
	if err != nil {
		return nil, fmt.Errorf("failed to extract body of message %s: %w", msg.Id, err)
	}

	names := make([]string, 0, len(msg.LabelIds))
	for _, id := range msg.LabelIds {
		if labels != nil {
			names = append(names, labels.Name(id))
		} else {
			names = append(names, id)
		}
	}

	return &EmailRecord{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		Sender:      HeaderValue(msg, "From"),
		Recipient:   HeaderValue(msg, "To"),
		Date:        HeaderValue(msg, "Date"),
		Subject:     HeaderValue(msg, "Subject"),
		Labels:      names,
		Body:        body,
		Attachments: mimepart.AttachmentFilenames(root),
	}, nil
}
