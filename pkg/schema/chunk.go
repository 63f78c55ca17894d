package schema

import (
	// Packages
	"github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Chunk is a bounded slice of a source file, tagged with its 1-based index
// and the number of chunks in the transfer
type Chunk struct {
	Name    string `json:"name"` // original filename
	Index   uint64 `json:"index"`
	Total   uint64 `json:"total"`
	Offset  int64  `json:"offset"`
	Payload []byte `json:"-"`
}

// ChunkRecord is a decoded chunk object found in a container's ledger
type ChunkRecord struct {
	Object
	Filename string `json:"filename"`
	Index    uint64 `json:"index"`
	Total    uint64 `json:"total"`
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Parts returns the number of chunks needed to hold size bytes
func Parts(size, chunkSize int64) uint64 {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return uint64((size + chunkSize - 1) / chunkSize)
}

// Offset returns the byte offset of the chunk with the given 1-based index
func Offset(index uint64, chunkSize int64) int64 {
	if index == 0 {
		return 0
	}
	return int64(index-1) * chunkSize
}

// Size returns the payload size in bytes
func (c Chunk) Size() int {
	return len(c.Payload)
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (c Chunk) String() string {
	return types.Stringify(c)
}

func (r ChunkRecord) String() string {
	return types.Stringify(r)
}
