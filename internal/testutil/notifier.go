package testutil

import (
	"context"
	"sync"
)

// SentLink is one message recorded by RecordingNotifier.
type SentLink struct {
	Email string
	Link  string
}

// RecordingNotifier keeps every message instead of sending it. Setting Err
// makes Send fail after recording.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentLink
	Err  error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Send(ctx context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentLink{Email: email, Link: link})
	return n.Err
}

// Sent returns a copy of the recorded messages.
func (n *RecordingNotifier) Sent() []SentLink {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentLink(nil), n.sent...)
}
