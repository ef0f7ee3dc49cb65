package notify

import "context"

// Kind names the class of notification so clients can route it.
type Kind string

// Message kinds delivered by this core. Transport is the sender's concern.
const (
	KindApprovalRequested Kind = "approval_requested"
	KindApprovalResolved  Kind = "approval_resolved"
	KindWorkerStart       Kind = "worker_start"
	KindWorkerRelease     Kind = "worker_release"
)

// Message is a channel-agnostic notification payload.
type Message struct {
	Kind  Kind              `json:"kind"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender delivers a message to a recipient by whatever channel the
// implementation owns (websocket session, push, SMS gateway).
type Sender interface {
	Send(ctx context.Context, recipientID string, msg Message) error
}

// Nop discards messages; handy default for tests and optional wiring.
type Nop struct{}

func (Nop) Send(ctx context.Context, recipientID string, msg Message) error { return nil }
