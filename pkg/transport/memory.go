package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrSendFailed is returned by a failing MemorySender.
var ErrSendFailed = errors.New("send failed")

// MemorySender records sent messages in memory for tests. FailFor lists
// recipient addresses whose sends should fail.
type MemorySender struct {
	mu      sync.Mutex
	sent    []Message
	FailFor map[string]bool
}

func NewMemorySender() *MemorySender {
	return &MemorySender{FailFor: make(map[string]bool)}
}

func (s *MemorySender) Send(_ context.Context, message Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailFor[message.To] {
		return ErrSendFailed
	}

	s.sent = append(s.sent, message)

	return nil
}

// Sent returns a copy of all successfully sent messages.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.sent))
	copy(out, s.sent)

	return out
}
