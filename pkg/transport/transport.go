// Package transport delivers rendered messages to customers through a
// pluggable sending backend. The engine only sees the Sender interface;
// the concrete backend and its endpoint are injected at construction.
package transport

import (
	"context"

	"github.com/gustolabs/fluxo/pkg/models"
)

// Message is a fully rendered message ready for delivery.
type Message struct {
	To        string                `json:"to"`
	FromName  string                `json:"from_name,omitempty"`
	FromEmail string                `json:"from_email,omitempty"`
	Subject   string                `json:"subject"`
	Body      string                `json:"body"`
	Channel   models.MessageChannel `json:"channel"`
	Metadata  map[string]any        `json:"metadata,omitempty"`
}

// Sender delivers a message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, message Message) error
}
