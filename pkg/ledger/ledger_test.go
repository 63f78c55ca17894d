package ledger_test

import (
	"context"
	"errors"
	"testing"

	// Packages
	ledger "github.com/mutablelogic/go-filesplit/pkg/ledger"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// objects is a Lister over a fixed append order
type objects []string

func (o objects) ListObjects(_ context.Context, req schema.ListObjectsRequest) (*schema.ListObjectsResponse, error) {
	resp := schema.ListObjectsResponse{Container: req.Container}
	for i, name := range o {
		resp.Body = append(resp.Body, schema.Object{
			Container: req.Container,
			Name:      name,
			Path:      "/" + req.Container + "/" + name,
			Seq:       uint64(i + 1),
		})
	}
	if req.Order == schema.NewestFirst {
		for i, j := 0, len(resp.Body)-1; i < j; i, j = i+1, j-1 {
			resp.Body[i], resp.Body[j] = resp.Body[j], resp.Body[i]
		}
	}
	resp.Count = len(resp.Body)
	return &resp, nil
}

type failing struct{}

func (failing) ListObjects(context.Context, schema.ListObjectsRequest) (*schema.ListObjectsResponse, error) {
	return nil, errors.New("list failed")
}

////////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_Ledger_Entries(t *testing.T) {
	assert := assert.New(t)
	l := ledger.New(objects{"f.part_1_of_3", "notes.txt", "f.part_2_of_3"}, "f")
	assert.Equal("f", l.Container())

	entries, err := l.Entries(context.Background(), schema.OldestFirst)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.NotNil(entries[0].Record)
	assert.NoError(entries[0].Err)
	assert.Nil(entries[1].Record)
	assert.ErrorIs(entries[1].Err, schema.ErrDecode)
	assert.Equal("notes.txt", entries[1].Name)
	assert.Equal(uint64(2), entries[2].Record.Index)
}

func Test_Ledger_FirstChunkRecord(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// The first decodable object carries the total
	l := ledger.New(objects{"readme", "f.part_1_of_5", "f.part_2_of_5"}, "f")
	record, err := l.FirstChunkRecord(ctx)
	if assert.NoError(err) {
		assert.Equal("f", record.Filename)
		assert.Equal(uint64(1), record.Index)
		assert.Equal(uint64(5), record.Total)
	}

	// Empty ledger
	_, err = ledger.New(objects{}, "f").FirstChunkRecord(ctx)
	assert.ErrorIs(err, schema.ErrEmptyLedger)

	// Nothing decodable
	_, err = ledger.New(objects{"a", "b.part_x_of_2"}, "f").FirstChunkRecord(ctx)
	assert.ErrorIs(err, schema.ErrEmptyLedger)

	// Transport failure
	_, err = ledger.New(failing{}, "f").FirstChunkRecord(ctx)
	assert.Error(err)
	assert.NotErrorIs(err, schema.ErrEmptyLedger)
}

func Test_Ledger_LastChunkIndex(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		objects objects
		want    uint64
	}{
		{"empty", objects{}, 0},
		{"none decodable", objects{"x", "y"}, 0},
		{"interrupted after part 2", objects{"f.part_1_of_3", "f.part_2_of_3"}, 2},
		{"malformed newest", objects{"f.part_1_of_3", "f.part_2_of_3", "f.part_3"}, 2},
		{"complete", objects{"f.part_1_of_3", "f.part_2_of_3", "f.part_3_of_3"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, err := ledger.New(tt.objects, "f").LastChunkIndex(ctx)
			assert.NoError(err)
			assert.Equal(tt.want, index)
		})
	}

	_, err := ledger.New(failing{}, "f").LastChunkIndex(ctx)
	assert.Error(err)
}

func Test_Ledger_LastChunkRecord(t *testing.T) {
	assert := assert.New(t)
	record, err := ledger.New(objects{"f.part_1_of_4", "f.part_2_of_4"}, "f").LastChunkRecord(context.Background())
	if assert.NoError(err) && assert.NotNil(record) {
		assert.Equal(uint64(2), record.Index)
		assert.Equal(uint64(4), record.Total)
		assert.Equal("/f/f.part_2_of_4", record.Path)
	}

	record, err = ledger.New(objects{}, "f").LastChunkRecord(context.Background())
	assert.NoError(err)
	assert.Nil(record)
}

func Test_Ledger_ChunkRecords(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// Malformed object interleaved with valid chunk objects
	l := ledger.New(objects{"f.part_1_of_4", "f.part_2_of_4", "garbage.part_", "f.part_3_of_4", "f.part_4_of_4"}, "f")

	records, err := l.ChunkRecords(ctx, 1)
	require.NoError(t, err)
	if assert.Len(records, 4) {
		for i, record := range records {
			assert.Equal(uint64(i+1), record.Index)
			assert.Equal(uint64(4), record.Total)
		}
	}

	records, err = l.ChunkRecords(ctx, 3)
	require.NoError(t, err)
	if assert.Len(records, 2) {
		assert.Equal(uint64(3), records[0].Index)
		assert.Equal(uint64(4), records[1].Index)
	}

	records, err = l.ChunkRecords(ctx, 5)
	assert.NoError(err)
	assert.Empty(records)
}
