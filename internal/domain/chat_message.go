package domain

import "time"

// MessageKind discriminates chat entries.
type MessageKind string

const (
	MessageKindUser       MessageKind = "MESSAGE"
	MessageKindSystem     MessageKind = "SYSTEM"
	MessageKindAttachment MessageKind = "ATTACHMENT"
)

// ChatMessage is an immutable entry in a ticket's conversation thread.
// System entries are synthesized by the lifecycle engine to narrate
// tracked state changes. Ordering is CreatedAt ascending with Seq as the
// insertion-order tiebreak.
type ChatMessage struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	Kind      MessageKind
	Seq       int64
	CreatedAt time.Time
}
