package resource

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrPendingEntry is returned when a pending entry is serialized before being imported.
var ErrPendingEntry = errors.New("pending resource entry must be imported before it is stored")

// Opener returns a fresh reader over a blob's content.
type Opener func() (io.ReadCloser, error)

// Entry is a handle to stored bytes.
//
// A pending entry wraps bytes supplied by the caller that have not been written to a
// Store yet. A persisted entry only carries the blob id and is re-read lazily through
// the Store that owns it.
type Entry struct {
	ID string

	open Opener
}

// NewPendingEntry wraps content that is not yet persisted.
func NewPendingEntry(open Opener) Entry {
	return Entry{open: open}
}

// PersistedEntry references an existing blob.
func PersistedEntry(id string) Entry {
	return Entry{ID: id}
}

// IsPending reports whether the entry still needs to be imported into a Store.
func (e Entry) IsPending() bool {
	return e.ID == "" && e.open != nil
}

// IsZero reports whether the entry references nothing at all.
func (e Entry) IsZero() bool {
	return e.ID == "" && e.open == nil
}

type entryJSON struct {
	ID string `json:"id"`
}

// MarshalJSON implements json.Marshaler. Pending entries cannot be serialized.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.IsPending() {
		return nil, ErrPendingEntry
	}
	return json.Marshal(entryJSON{ID: e.ID})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{ID: raw.ID}
	return nil
}
