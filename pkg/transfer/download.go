package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	ledger "github.com/mutablelogic/go-filesplit/pkg/ledger"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	attribute "go.opentelemetry.io/otel/attribute"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Download fetches every chunk in a container and writes them in order to
// a file in req.Dir, named after the original file. The filename and
// number of parts come from the oldest chunk record in the ledger.
//
// When the output does not hold all the parts once the ledger is read,
// the incomplete transfer is returned with an error wrapping
// schema.ErrIncomplete, and can be continued with DownloadFromPart.
func (manager *Manager) Download(ctx context.Context, req schema.DownloadRequest) (_ *schema.Transfer, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("Download"))
	defer func() { endFunc(err) }()

	// Read the filename and number of parts from the ledger
	l := ledger.New(manager.transport, req.Container)
	first, err := l.FirstChunkRecord(child)
	if err != nil {
		return nil, err
	}
	filename, err := outputName(first.Filename)
	if err != nil {
		return nil, err
	}

	// Create the output file
	dir := req.Dir
	if dir == "" {
		dir = schema.DefaultDownloadDir
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Reassemble from the first part
	t := manager.newTransfer(first.Filename, req.Container, path, first.Total, 1)
	setSpanAttributes(child, t)
	manager.emit(t, schema.Event{
		Name:    schema.StartEvent,
		Message: fmt.Sprintf("downloading %q from %d parts", t.Name, t.Parts),
	})

	return manager.reassemble(child, t, l, f)
}

// DownloadFromPart continues a download into the existing file at
// req.Path, fetching chunks from req.Part onwards. The file is cut to the
// end of the part before req.Part, so it must already hold at least that
// many bytes.
func (manager *Manager) DownloadFromPart(ctx context.Context, req schema.DownloadFromPartRequest) (_ *schema.Transfer, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("DownloadFromPart"))
	defer func() { endFunc(err) }()

	// Check the request
	if req.Part == 0 {
		return nil, httpresponse.ErrBadRequest.With("part numbers start at 1")
	}
	info, err := os.Stat(req.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, schema.ErrPathNotFound.Withf("%q does not exist", req.Path)
	} else if err != nil {
		return nil, err
	} else if !info.Mode().IsRegular() {
		return nil, schema.ErrPathNotFound.Withf("%q is not a regular file", req.Path)
	}

	// Read the filename and number of parts from the ledger
	l := ledger.New(manager.transport, req.Container)
	first, err := l.FirstChunkRecord(child)
	if err != nil {
		return nil, err
	} else if req.Part > first.Total {
		return nil, httpresponse.ErrBadRequest.Withf("part %d exceeds %d parts of %q", req.Part, first.Total, first.Filename)
	}

	// The file must hold every part before the requested one
	offset := schema.Offset(req.Part, manager.chunkSize)
	if info.Size() < offset {
		return nil, httpresponse.ErrBadRequest.Withf("%q holds %d bytes, part %d starts at byte %d", req.Path, info.Size(), req.Part, offset)
	}

	// Open the output and position it at the start of the part
	f, err := os.OpenFile(req.Path, os.O_WRONLY, filePerm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := f.Truncate(offset); err != nil {
		return nil, err
	} else if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	// Reassemble from the requested part
	t := manager.newTransfer(first.Filename, req.Container, req.Path, first.Total, req.Part)
	setSpanAttributes(child, t)
	manager.emit(t, schema.Event{
		Name:    schema.ResumeEvent,
		Index:   req.Part,
		Bytes:   offset,
		Message: fmt.Sprintf("resuming download of %q from part %d of %d", t.Name, req.Part, t.Parts),
	})

	return manager.reassemble(child, t, l, f)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// reassemble writes chunks from t.Start onwards to f, which is positioned
// at the start of that chunk. It stops at the first missing part. Records
// of other transfers and repeated parts are skipped.
func (manager *Manager) reassemble(ctx context.Context, t *schema.Transfer, l *ledger.Ledger, f *os.File) (*schema.Transfer, error) {
	t.State = schema.InProgress

	records, err := l.ChunkRecords(ctx, t.Start)
	if err != nil {
		return manager.incomplete(t, err)
	}

	next := t.Start
	for _, record := range records {
		if next > t.Parts {
			break
		} else if record.Filename != t.Name || record.Total != t.Parts {
			manager.log(t).WithField("part", record.Index).Debugf("skipping %q", record.Name)
			continue
		} else if record.Index < next {
			continue
		} else if record.Index > next {
			// Missing part
			break
		}

		// Fetch the chunk and write it
		n, err := manager.fetchChunk(ctx, t, f, record)
		if err != nil {
			return manager.incomplete(t, err)
		}
		next++
		t.Count++
		t.Bytes += n
		manager.metrics.received(ctx, t.Container, n)
		manager.emit(t, schema.Event{Name: schema.ChunkEvent, Index: record.Index, Bytes: n})
	}

	// Flush and check the output holds every part
	if err := f.Sync(); err != nil {
		return manager.incomplete(t, err)
	}
	info, err := f.Stat()
	if err != nil {
		return manager.incomplete(t, err)
	}
	t.Size = info.Size()
	if parts := schema.Parts(t.Size, t.ChunkSize); parts < t.Parts {
		return manager.incomplete(t, fmt.Errorf("expected %d parts, have data for %d parts", t.Parts, parts))
	}

	// Return success
	return manager.complete(t, fmt.Sprintf("download of %q complete", t.Name)), nil
}

// fetchChunk fetches one chunk and writes it to f at the chunk offset,
// retrying transient failures. A failed attempt is discarded before the
// next one.
func (manager *Manager) fetchChunk(ctx context.Context, t *schema.Transfer, f *os.File, record schema.ChunkRecord) (_ int64, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("DownloadChunk"))
	defer func() { endFunc(err) }()
	trace.SpanFromContext(child).SetAttributes(
		attribute.String("name", record.Name),
		attribute.Int64("part", int64(record.Index)),
	)

	offset := schema.Offset(record.Index, t.ChunkSize)
	var written int64
	_, err = manager.policy.Do(child, manager.sleeper, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			if err := f.Truncate(offset); err != nil {
				return err
			} else if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return err
			}
		}

		r, err := manager.transport.FetchObject(ctx, record.Path)
		if err != nil {
			return attemptErr(err)
		}
		defer r.Close()

		written, err = io.Copy(f, r)
		return attemptErr(err)
	}, manager.notify(child, t, "download", record.Index))

	return written, err
}

// outputName returns the base name for an output file, rejecting names
// which would escape the output directory
func outputName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name != filename || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", httpresponse.ErrBadRequest.Withf("invalid filename %q", filename)
	}
	return name, nil
}
