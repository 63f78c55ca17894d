package schema

import (
	// Packages
	"github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// State is the position of a transfer in its lifecycle. A transfer which
// was interrupted is re-entered by a resume, which derives its position
// from the ledger, never from a saved Transfer.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
	Incomplete
)

// Transfer describes one upload or download operation
type Transfer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`            // original filename
	Container string `json:"container"`       // container holding the chunk objects
	Path      string `json:"path,omitempty"`  // local source or output path
	Size      int64  `json:"size"`            // source size, or output size after a download
	ChunkSize int64  `json:"chunk_size"`      // fixed chunk size
	Parts     uint64 `json:"parts"`           // total number of chunks
	Start     uint64 `json:"start"`           // first chunk index this operation handled
	Count     uint64 `json:"count"`           // chunks sent or written by this operation
	Bytes     int64  `json:"bytes"`           // payload bytes sent or written by this operation
	State     State  `json:"state"`           // terminal state
	Error     string `json:"error,omitempty"` // reason for an incomplete transfer
}

type UploadRequest struct {
	Path  string `json:"path"`            // source file
	Label string `json:"label,omitempty"` // optional container label
}

type ResumeRequest struct {
	Path  string `json:"path"`            // source file
	Label string `json:"label,omitempty"` // optional container label
}

type DownloadRequest struct {
	Container string `json:"container"`
	Dir       string `json:"dir,omitempty"` // output directory, defaults to DefaultDownloadDir
}

type DownloadFromPartRequest struct {
	Container string `json:"container"`
	Path      string `json:"path"` // existing partial output file
	Part      uint64 `json:"part"` // first chunk index to fetch
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Completed:
		return "completed"
	case Incomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (t Transfer) String() string {
	return types.Stringify(t)
}

func (r UploadRequest) String() string {
	return types.Stringify(r)
}

func (r ResumeRequest) String() string {
	return types.Stringify(r)
}

func (r DownloadRequest) String() string {
	return types.Stringify(r)
}

func (r DownloadFromPartRequest) String() string {
	return types.Stringify(r)
}
