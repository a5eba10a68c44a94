// Package history keeps snapshots of saved activation files in a bbolt
// database so earlier states can be restored.
package history

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one recorded snapshot.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// Operation is a short label such as "activate running-units@1.0.0".
	Operation string `json:"operation"`
	// Explicit lists the explicit extensions after the operation, display
	// order.
	Explicit []string `json:"explicit"`
	// Document is the encoded activation file.
	Document []byte `json:"document"`
}

// NewEntry creates an entry with a fresh ULID, timestamped now.
func NewEntry(operation string, explicit []string, document []byte) *Entry {
	id := ulid.Make()
	return &Entry{
		ID:        id.String(),
		Timestamp: ulid.Time(id.Time()).UTC(),
		Operation: operation,
		Explicit:  append([]string(nil), explicit...),
		Document:  append([]byte(nil), document...),
	}
}
