package schema

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

const (
	// Event names emitted while a transfer runs. Callers switch on these
	// to drive progress output.

	// StartEvent is sent once before the first chunk of a fresh upload or
	// download is handled
	StartEvent = "start"

	// ResumeEvent is sent once when an upload or download continues from a
	// chunk found in, or requested against, the ledger
	ResumeEvent = "resume"

	// ChunkEvent is sent after each chunk has been sent or written
	ChunkEvent = "chunk"

	// RetryEvent is sent after a transient failure, before the backoff wait
	RetryEvent = "retry"

	// CompleteEvent is sent when every chunk has been transferred
	CompleteEvent = "complete"

	// IncompleteEvent is sent when the transfer halts early. Chunks already
	// stored are left in place for a later resume.
	IncompleteEvent = "incomplete"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Event is a progress notification for a running transfer
type Event struct {
	Name      string `json:"event"`
	Transfer  string `json:"transfer"`
	Filename  string `json:"filename,omitempty"`
	Container string `json:"container"`

	// Index is the 1-based chunk index, zero for transfer-level events
	Index uint64 `json:"index,omitempty"`

	// Total is the number of chunks in the transfer
	Total uint64 `json:"total"`

	// Bytes is the payload size of the chunk, or bytes transferred so far
	// for transfer-level events
	Bytes int64 `json:"bytes,omitempty"`

	// Remaining is the number of attempts left, for RetryEvent
	Remaining int `json:"remaining,omitempty"`

	// Message describes a failure, for RetryEvent and IncompleteEvent
	Message string `json:"message,omitempty"`
}
