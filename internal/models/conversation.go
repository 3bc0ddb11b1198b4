package models

import "time"

// TurnRole identifies who produced a conversation turn
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one entry of a session's append-only history
type ConversationTurn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// ConversationRecord is the persisted form of a turn. Seq orders turns within a session.
type ConversationRecord struct {
	ID        string    `json:"id" badgerhold:"key"` // turn:{session_id}:{seq}
	SessionID string    `json:"session_id" badgerhold:"index"`
	Seq       int64     `json:"seq"`
	Role      TurnRole  `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn converts the record back to its in-memory form
func (r ConversationRecord) Turn() ConversationTurn {
	return ConversationTurn{Role: r.Role, Text: r.Text}
}

// ConversationSession tracks the next sequence number of a session's append log
type ConversationSession struct {
	ID        string    `json:"id"`
	NextSeq   int64     `json:"next_seq"`
	UpdatedAt time.Time `json:"updated_at"`
}
