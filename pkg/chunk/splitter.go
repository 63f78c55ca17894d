package chunk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Packages
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Splitter reads a source file sequentially and returns it as ordered,
// bounded-size chunks. A Splitter is not restartable: open a new one to
// read the file again.
type Splitter struct {
	f         *os.File
	name      string
	size      int64
	chunkSize int64
	total     uint64
	index     uint64 // index of the next chunk returned
	buf       []byte
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Open returns a splitter for the file at path, positioned at the first
// chunk. Returns an error wrapping schema.ErrPathNotFound when the path does
// not exist or is not a regular file.
func Open(path string, chunkSize int64) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	// Check the source
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, schema.ErrPathNotFound.Withf("%q does not exist", path)
	} else if err != nil {
		return nil, err
	} else if !info.Mode().IsRegular() {
		return nil, schema.ErrPathNotFound.Withf("%q is not a regular file", path)
	}

	// Open the source for sequential reads
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	// Return success
	return &Splitter{
		f:         f,
		name:      filepath.Base(path),
		size:      info.Size(),
		chunkSize: chunkSize,
		total:     schema.Parts(info.Size(), chunkSize),
		index:     1,
	}, nil
}

// Close releases the source file
func (s *Splitter) Close() error {
	var result error
	if s.f != nil {
		result = s.f.Close()
		s.f = nil
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Name returns the original filename
func (s *Splitter) Name() string {
	return s.name
}

// Size returns the size of the source in bytes
func (s *Splitter) Size() int64 {
	return s.size
}

// Total returns the number of chunks in the source
func (s *Splitter) Total() uint64 {
	return s.total
}

// Seek positions the splitter so the next chunk returned has the given
// 1-based index, at byte offset (index-1)*chunkSize
func (s *Splitter) Seek(index uint64) error {
	if s.f == nil {
		return os.ErrClosed
	} else if index == 0 {
		return fmt.Errorf("invalid chunk index %d", index)
	}
	if _, err := s.f.Seek(schema.Offset(index, s.chunkSize), io.SeekStart); err != nil {
		return err
	}
	s.index = index
	return nil
}

// Next returns the next chunk, or io.EOF after the last chunk or once a
// read returns no bytes. Reads are bounded by the size taken at Open, so
// bytes appended to the source later are never returned. The payload is
// only valid until the next call to Next.
func (s *Splitter) Next() (*schema.Chunk, error) {
	if s.f == nil {
		return nil, os.ErrClosed
	} else if s.index > s.total {
		return nil, io.EOF
	}
	if s.buf == nil {
		s.buf = make([]byte, s.chunkSize)
	}

	// Read up to one chunk, and no further than the end of the source
	want := min(s.chunkSize, s.size-schema.Offset(s.index, s.chunkSize))
	n, err := io.ReadFull(s.f, s.buf[:want])
	if n == 0 {
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	} else if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	// Tag the chunk and advance
	chunk := &schema.Chunk{
		Name:    s.name,
		Index:   s.index,
		Total:   s.total,
		Offset:  schema.Offset(s.index, s.chunkSize),
		Payload: s.buf[:n],
	}
	s.index++

	// Return success
	return chunk, nil
}
