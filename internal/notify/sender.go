// Package notify delivers renewal reminders over email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFailedToSend  = errors.New("failed to send notification")
	ErrInvalidConfig = errors.New("invalid notification config")
	ErrInvalidParams = errors.New("invalid notification params")
)

// Sender is the notification channel. Implementations may be slow and are
// expected to fail per recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	Tag      string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if strings.TrimSpace(m.HTMLBody) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
