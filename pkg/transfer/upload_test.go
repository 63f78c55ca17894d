package transfer_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	transfer "github.com/mutablelogic/go-filesplit/pkg/transfer"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Upload_Scenario(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newTransport(t)
	manager, recorder := newManager(t, transport, schema.ChunkSize)

	// 20 MiB in 8 MiB chunks
	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 20<<20)})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(uint64(3), result.Parts)
	assert.Equal(uint64(1), result.Start)
	assert.Equal(uint64(3), result.Count)
	assert.Equal(int64(20<<20), result.Bytes)
	assert.Equal("f", result.Container)
	assert.NotEmpty(result.ID)

	resp, err := transport.ListObjects(ctx, schema.ListObjectsRequest{Container: "f"})
	require.NoError(t, err)
	if assert.Equal(3, resp.Count) {
		assert.Equal("f.part_1_of_3", resp.Body[0].Name)
		assert.Equal("f.part_2_of_3", resp.Body[1].Name)
		assert.Equal("f.part_3_of_3", resp.Body[2].Name)
		assert.Equal(int64(8<<20), resp.Body[0].Size)
		assert.Equal(int64(8<<20), resp.Body[1].Size)
		assert.Equal(int64(4<<20), resp.Body[2].Size)
	}

	// One pace after each chunk
	assert.Equal([]time.Duration{time.Second, time.Second, time.Second}, recorder.Waits())
}

func Test_Upload_Errors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	manager, _ := newManager(t, newTransport(t), 4)

	// Missing source
	_, err := manager.Upload(ctx, schema.UploadRequest{Path: "/does/not/exist"})
	assert.ErrorIs(err, schema.ErrPathNotFound)

	// Directory
	_, err = manager.Upload(ctx, schema.UploadRequest{Path: t.TempDir()})
	assert.ErrorIs(err, schema.ErrPathNotFound)

	// Container already exists
	path := writeFile(t, "data.bin", 10)
	_, err = manager.Upload(ctx, schema.UploadRequest{Path: path})
	require.NoError(t, err)
	_, err = manager.Upload(ctx, schema.UploadRequest{Path: path})
	assert.ErrorIs(err, schema.ErrContainerCreation)
}

func Test_Upload_Empty(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newTransport(t)
	manager, _ := newManager(t, transport, 4)

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "empty", 0)})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(uint64(0), result.Parts)
	assert.Equal(uint64(0), result.Count)
	assert.Empty(names(t, transport, "empty"))

	// Resume of an empty file is already complete
	result, err = manager.Resume(ctx, schema.ResumeRequest{Path: writeFile(t, "empty", 0)})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(uint64(0), result.Count)
}

func Test_Upload_RetryBound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newFaulty(t)
	transport.send = func(string, int) error {
		return schema.ErrTransient.With("rate limited")
	}

	var events []schema.Event
	manager, recorder := newManager(t, transport, 4, transfer.WithProgress(func(e schema.Event) {
		events = append(events, e)
	}))

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 10)})
	assert.ErrorIs(err, schema.ErrIncomplete)
	assert.ErrorIs(err, schema.ErrTransient)
	if assert.NotNil(result) {
		assert.Equal(schema.Incomplete, result.State)
		assert.Equal(uint64(0), result.Count)
		assert.NotEmpty(result.Error)
	}

	// Exactly three attempts for the first chunk, none for the rest
	assert.Equal(3, transport.Sends("f.part_1_of_3"))
	assert.Equal(3, transport.TotalSends())
	assert.Equal([]time.Duration{10 * time.Second, 10 * time.Second}, recorder.Waits())
	assert.Empty(names(t, transport, "f"))

	// Two retry events with the attempts left, then incomplete
	var retries []int
	for _, e := range events {
		if e.Name == schema.RetryEvent {
			retries = append(retries, e.Remaining)
		}
	}
	assert.Equal([]int{2, 1}, retries)
	if assert.NotEmpty(events) {
		assert.Equal(schema.StartEvent, events[0].Name)
		assert.Equal(schema.IncompleteEvent, events[len(events)-1].Name)
		assert.Equal(uint64(1), events[len(events)-1].Index)
	}
}

func Test_Upload_TransientThenSuccess(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newFaulty(t)
	transport.send = func(name string, call int) error {
		if name == "f.part_2_of_3" && call == 1 {
			return schema.ErrTransient.With("server error")
		}
		return nil
	}
	manager, recorder := newManager(t, transport, 4)

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 10)})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(2, transport.Sends("f.part_2_of_3"))

	// No duplicate objects from the retry
	assert.Equal([]string{"f.part_1_of_3", "f.part_2_of_3", "f.part_3_of_3"}, names(t, transport, "f"))
	assert.Equal(3*time.Second+10*time.Second, recorder.Total())
}

func Test_Upload_Unexpected(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newFaulty(t)
	transport.send = func(name string, call int) error {
		if name == "f.part_2_of_3" {
			return httpresponse.ErrForbidden.With("denied")
		}
		return nil
	}
	manager, _ := newManager(t, transport, 4)

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 10)})
	assert.ErrorIs(err, schema.ErrIncomplete)
	assert.ErrorIs(err, schema.ErrUnexpected)
	assert.ErrorIs(err, httpresponse.ErrForbidden)
	assert.Equal(schema.Incomplete, result.State)
	assert.Equal(uint64(1), result.Count)

	// One attempt only, and no further chunks
	assert.Equal(1, transport.Sends("f.part_2_of_3"))
	assert.Equal(0, transport.Sends("f.part_3_of_3"))
	assert.Equal([]string{"f.part_1_of_3"}, names(t, transport, "f"))
}

func Test_Upload_Cancelled(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	transport := newFaulty(t)
	transport.send = func(name string, call int) error {
		if name == "f.part_2_of_3" {
			cancel()
			return context.Canceled
		}
		return nil
	}
	manager, _ := newManager(t, transport, 4)

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 10)})
	assert.ErrorIs(err, schema.ErrIncomplete)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(schema.Incomplete, result.State)
	assert.Equal(1, transport.Sends("f.part_2_of_3"))
}

func Test_Upload_BatchPause(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	manager, recorder := newManager(t, newTransport(t), 1)

	// 100 chunks: a pause before chunk 50 and chunk 100
	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 100)})
	require.NoError(t, err)
	assert.Equal(uint64(100), result.Count)

	waits := recorder.Waits()
	if assert.Len(waits, 102) {
		// Pace after chunks 1..49, then the pause before chunk 50
		assert.Equal(5*time.Second, waits[49])
		assert.Equal(time.Second, waits[50])
		assert.Equal(5*time.Second, waits[100])
		assert.Equal(time.Second, waits[101])
	}
	assert.Equal(110*time.Second, recorder.Total())
}

func Test_Upload_Events(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var events []schema.Event
	manager, _ := newManager(t, newTransport(t), 4, transfer.WithProgress(func(e schema.Event) {
		events = append(events, e)
	}))

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: writeFile(t, "f", 10)})
	require.NoError(t, err)

	var got []string
	for _, e := range events {
		got = append(got, fmt.Sprint(e.Name, ":", e.Index))
		assert.Equal(result.ID, e.Transfer)
		assert.Equal("f", e.Container)
		assert.Equal(uint64(3), e.Total)
	}
	assert.Equal([]string{"start:0", "chunk:1", "chunk:2", "chunk:3", "complete:0"}, got)
	assert.Equal(int64(2), events[3].Bytes)
	assert.Equal(int64(10), events[4].Bytes)
}

func Test_Resume_Interrupted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newFaulty(t)
	path := writeFile(t, "f", 20<<20)

	// Interrupted after part 2 of 3 is stored
	transport.send = func(name string, call int) error {
		if name == "f.part_3_of_3" {
			return httpresponse.ErrInternalError.With("process stopped")
		}
		return nil
	}
	manager, _ := newManager(t, transport, schema.ChunkSize)
	result, err := manager.Upload(ctx, schema.UploadRequest{Path: path})
	assert.ErrorIs(err, schema.ErrIncomplete)
	assert.Equal(uint64(2), result.Count)

	// A new manager, with no registry, resumes from part 3 only
	transport.send = nil
	var events []schema.Event
	manager, _ = newManager(t, transport, schema.ChunkSize, transfer.WithProgress(func(e schema.Event) {
		events = append(events, e)
	}))
	result, err = manager.Resume(ctx, schema.ResumeRequest{Path: path})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(uint64(3), result.Start)
	assert.Equal(uint64(1), result.Count)
	assert.Equal(int64(4<<20), result.Bytes)
	assert.Equal(1, transport.Sends("f.part_1_of_3"))
	assert.Equal(1, transport.Sends("f.part_2_of_3"))
	assert.Equal(2, transport.Sends("f.part_3_of_3"))
	assert.Equal([]string{"f.part_1_of_3", "f.part_2_of_3", "f.part_3_of_3"}, names(t, transport, "f"))

	if assert.NotEmpty(events) {
		assert.Equal(schema.ResumeEvent, events[0].Name)
		assert.Equal(uint64(3), events[0].Index)
	}

	// The reassembled file matches the source
	download, err := manager.Download(ctx, schema.DownloadRequest{Container: "f", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(readFile(t, path), readFile(t, download.Path))
}

func Test_Resume_Equivalence(t *testing.T) {
	const parts = 5
	ctx := context.Background()
	path := writeFile(t, "data.bin", 4*parts-1)

	// Fresh upload
	fresh := newTransport(t)
	manager, _ := newManager(t, fresh, 4)
	_, err := manager.Upload(ctx, schema.UploadRequest{Path: path})
	require.NoError(t, err)
	want := names(t, fresh, "data-bin")
	require.Len(t, want, parts)

	for k := 0; k <= parts; k++ {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			assert := assert.New(t)
			transport := newFaulty(t)

			// Upload chunks 1..k, then fail
			stop := fmt.Sprintf("data.bin.part_%d_of_%d", k+1, parts)
			transport.send = func(name string, call int) error {
				if name == stop {
					return httpresponse.ErrInternalError.With("halt")
				}
				return nil
			}
			manager, _ := newManager(t, transport, 4)
			result, err := manager.Upload(ctx, schema.UploadRequest{Path: path})
			if k < parts {
				assert.ErrorIs(err, schema.ErrIncomplete)
			} else {
				assert.NoError(err)
			}
			assert.Equal(uint64(k), result.Count)

			// Resume the rest
			transport.send = nil
			result, err = manager.Resume(ctx, schema.ResumeRequest{Path: path})
			require.NoError(t, err)
			assert.Equal(schema.Completed, result.State)
			assert.Equal(uint64(k+1), result.Start)
			assert.Equal(uint64(parts-k), result.Count)
			assert.Equal(want, names(t, transport, "data-bin"))
		})
	}
}

func Test_Resume_Registry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newFaulty(t)
	path := writeFile(t, "movie.mp4", 10)

	transport.send = func(name string, call int) error {
		if name == "movie.mp4.part_2_of_3" {
			return httpresponse.ErrInternalError.With("halt")
		}
		return nil
	}
	manager, _ := newManager(t, transport, 4)
	_, err := manager.Upload(ctx, schema.UploadRequest{Path: path, Label: "Holiday Movie"})
	assert.ErrorIs(err, schema.ErrIncomplete)

	// Resumed without the label in the same process
	transport.send = nil
	result, err := manager.Resume(ctx, schema.ResumeRequest{Path: path})
	require.NoError(t, err)
	assert.Equal("holiday-movie", result.Container)
	assert.Equal(uint64(2), result.Start)

	// A new process needs the label
	manager, _ = newManager(t, transport, 4)
	_, err = manager.Resume(ctx, schema.ResumeRequest{Path: path})
	assert.ErrorIs(err, httpresponse.ErrNotFound)
	result, err = manager.Resume(ctx, schema.ResumeRequest{Path: path, Label: "Holiday Movie"})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(uint64(0), result.Count)
}

func Test_Resume_Conflict(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newTransport(t)
	manager, _ := newManager(t, transport, 4)

	path := writeFile(t, "f", 10)
	_, err := manager.Upload(ctx, schema.UploadRequest{Path: path})
	require.NoError(t, err)

	// The source grows to five parts
	require.NoError(t, os.WriteFile(path, make([]byte, 20), 0o644))
	_, err = manager.Resume(ctx, schema.ResumeRequest{Path: path})
	assert.ErrorIs(err, schema.ErrConflict)
	assert.Len(names(t, transport, "f"), 3)

	// Missing source
	_, err = manager.Resume(ctx, schema.ResumeRequest{Path: "/does/not/exist"})
	assert.ErrorIs(err, schema.ErrPathNotFound)
}

func Test_Upload_SourceGrows(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	transport := newTransport(t)
	path := writeFile(t, "g.bin", 8)
	original := readFile(t, path)

	// Append to the source once the first chunk has been sent
	appended := false
	manager, _ := newManager(t, transport, 4, transfer.WithProgress(func(e schema.Event) {
		if e.Name != schema.ChunkEvent || appended {
			return
		}
		appended = true
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = f.Write(make([]byte, 8))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}))

	result, err := manager.Upload(ctx, schema.UploadRequest{Path: path})
	require.NoError(t, err)
	assert.True(appended)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(uint64(2), result.Parts)
	assert.Equal(uint64(2), result.Count)
	assert.Equal(int64(8), result.Bytes)
	assert.Equal([]string{"g.bin.part_1_of_2", "g.bin.part_2_of_2"}, names(t, transport, "g-bin"))

	// The stored transfer is the file as it was opened
	out := t.TempDir()
	result, err = manager.Download(ctx, schema.DownloadRequest{Container: "g-bin", Dir: out})
	require.NoError(t, err)
	assert.Equal(schema.Completed, result.State)
	assert.Equal(original, readFile(t, result.Path))
}
