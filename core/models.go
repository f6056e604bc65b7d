package core

import (
	"time"

	"github.com/google/uuid"
)

// NoIndexPos marks a record that has no entry in its user's vector index,
// either because embedding failed or because the index has not been rebuilt yet.
const NoIndexPos = -1

// Role identifies the author of a conversation message.
type Role int

const (
	// RoleUser represents the human participant.
	RoleUser Role = iota + 1
	// RoleAssistant represents the conversational agent.
	RoleAssistant
)

// Speaker returns the display name used when formatting context transcripts.
func (r Role) Speaker() string {
	if r == RoleUser {
		return "User"
	}
	return "Assistant"
}

// MemoryRecord is a single message in a user's conversation log.
// Records are immutable once created and owned exclusively by the log
// of the user they were added for.
type MemoryRecord struct {
	Id        string
	Role      Role
	Text      string
	Timestamp time.Time // When the message was added to the log
	IndexPos  int       // Position in the user's vector index, NoIndexPos if absent
}

// NewMemoryRecord creates a record with a fresh ID and the current time.
// The record starts without an index position; the memory store assigns
// one after a successful embedding.
func NewMemoryRecord(role Role, text string) *MemoryRecord {
	return &MemoryRecord{
		Id:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
		IndexPos:  NoIndexPos,
	}
}

// Embedded reports whether the record has a corresponding vector index entry.
func (r *MemoryRecord) Embedded() bool {
	return r.IndexPos != NoIndexPos
}

// Clone returns an independent copy of the record.
func (r *MemoryRecord) Clone() *MemoryRecord {
	clone := *r
	return &clone
}
