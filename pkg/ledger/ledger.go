// Package ledger scans a container's object history and classifies each
// object as a chunk record or not. The ledger is the only durable record of
// transfer progress.
package ledger

import (
	"context"

	// Packages
	chunk "github.com/mutablelogic/go-filesplit/pkg/chunk"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Lister returns the objects in a container in the given order
type Lister interface {
	ListObjects(context.Context, schema.ListObjectsRequest) (*schema.ListObjectsResponse, error)
}

// Entry is the classification of one object in the ledger. Exactly one of
// Record and Err is set: Err wraps schema.ErrDecode when the object name is
// not a chunk object name.
type Entry struct {
	schema.Object
	Record *schema.ChunkRecord
	Err    error
}

// Ledger scans one container
type Ledger struct {
	lister    Lister
	container string
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns a scanner for the named container
func New(lister Lister, container string) *Ledger {
	return &Ledger{lister: lister, container: container}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Container returns the name of the container
func (l *Ledger) Container() string {
	return l.container
}

// Entries returns a classified entry for every object in the container,
// in the requested order
func (l *Ledger) Entries(ctx context.Context, order schema.Order) ([]Entry, error) {
	resp, err := l.lister.ListObjects(ctx, schema.ListObjectsRequest{
		Container: l.container,
		Order:     order,
	})
	if err != nil {
		return nil, err
	}

	result := make([]Entry, 0, len(resp.Body))
	for _, obj := range resp.Body {
		record, err := chunk.Record(obj)
		result = append(result, Entry{Object: obj, Record: record, Err: err})
	}
	return result, nil
}

// FirstChunkRecord returns the oldest decodable chunk record, which carries
// the original filename and number of parts. Returns an error wrapping
// schema.ErrEmptyLedger when there is none.
func (l *Ledger) FirstChunkRecord(ctx context.Context) (*schema.ChunkRecord, error) {
	entries, err := l.Entries(ctx, schema.OldestFirst)
	if err != nil {
		return nil, err
	}
	if r := records(entries); len(r) > 0 {
		return r[0], nil
	}
	return nil, schema.ErrEmptyLedger.Withf("container %q", l.container)
}

// LastChunkRecord returns the newest decodable chunk record, or nil if the
// container has no chunk records
func (l *Ledger) LastChunkRecord(ctx context.Context) (*schema.ChunkRecord, error) {
	entries, err := l.Entries(ctx, schema.NewestFirst)
	if err != nil {
		return nil, err
	}
	if r := records(entries); len(r) > 0 {
		return r[0], nil
	}
	return nil, nil
}

// LastChunkIndex returns the index of the newest decodable chunk record,
// or zero if no chunk has been stored
func (l *Ledger) LastChunkIndex(ctx context.Context) (uint64, error) {
	record, err := l.LastChunkRecord(ctx)
	if err != nil || record == nil {
		return 0, err
	}
	return record.Index, nil
}

// ChunkRecords returns every decodable chunk record with an index of at
// least min, oldest-first. Objects which are not chunk objects are skipped.
func (l *Ledger) ChunkRecords(ctx context.Context, min uint64) ([]schema.ChunkRecord, error) {
	entries, err := l.Entries(ctx, schema.OldestFirst)
	if err != nil {
		return nil, err
	}
	var result []schema.ChunkRecord
	for _, record := range records(entries) {
		if record.Index >= min {
			result = append(result, *record)
		}
	}
	return result, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// records filters entries to chunk records, keeping their order
func records(entries []Entry) []*schema.ChunkRecord {
	result := make([]*schema.ChunkRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.Err == nil && entry.Record != nil {
			result = append(result, entry.Record)
		}
	}
	return result
}
