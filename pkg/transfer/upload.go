package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	chunk "github.com/mutablelogic/go-filesplit/pkg/chunk"
	ledger "github.com/mutablelogic/go-filesplit/pkg/ledger"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	attribute "go.opentelemetry.io/otel/attribute"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	chunkContentType = "application/octet-stream"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Upload creates a new container for the file at req.Path and sends every
// chunk of the file to it, in order. The container is named from
// req.Label, or from the filename when there is no label.
//
// When a chunk cannot be sent the transfer halts: the incomplete transfer
// is returned with an error wrapping schema.ErrIncomplete, and can be
// continued with Resume.
func (manager *Manager) Upload(ctx context.Context, req schema.UploadRequest) (_ *schema.Transfer, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("Upload"))
	defer func() { endFunc(err) }()

	// Open the source
	splitter, err := chunk.Open(req.Path, manager.chunkSize)
	if err != nil {
		return nil, err
	}
	defer splitter.Close()

	// Create the container
	container := containerName(splitter.Name(), req.Label)
	if _, err := manager.transport.CreateContainer(child, container); err != nil {
		if !errors.Is(err, schema.ErrContainerCreation) {
			err = schema.ErrContainerCreation.Withf("%q: %w", container, err)
		}
		return nil, err
	}
	manager.registry.Set(splitter.Name(), container)

	// Send the chunks
	t := manager.newTransfer(splitter.Name(), container, req.Path, splitter.Total(), 1)
	t.Size = splitter.Size()
	setSpanAttributes(child, t)
	manager.emit(t, schema.Event{
		Name:    schema.StartEvent,
		Bytes:   t.Size,
		Message: fmt.Sprintf("uploading %q as %d parts", t.Name, t.Parts),
	})

	return manager.send(child, t, splitter)
}

// Resume continues an upload of the file at req.Path. The next chunk to
// send is found from the newest chunk record in the container's ledger.
// The container is named from req.Label, or else taken from the registry,
// or else named from the filename.
//
// Resume fails with schema.ErrConflict when the ledger records a different
// number of parts for the file, which means the file has changed.
func (manager *Manager) Resume(ctx context.Context, req schema.ResumeRequest) (_ *schema.Transfer, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("Resume"))
	defer func() { endFunc(err) }()

	// Open the source
	splitter, err := chunk.Open(req.Path, manager.chunkSize)
	if err != nil {
		return nil, err
	}
	defer splitter.Close()

	// Find the container
	container := containerName(splitter.Name(), req.Label)
	if req.Label == "" {
		if name, ok := manager.registry.Get(splitter.Name()); ok {
			container = name
		}
	}
	if _, err := manager.transport.GetContainer(child, container); err != nil {
		return nil, err
	}

	// Find the newest chunk record
	last, err := ledger.New(manager.transport, container).LastChunkRecord(child)
	if err != nil {
		return nil, err
	}
	var index uint64
	if last != nil {
		if last.Filename != splitter.Name() {
			return nil, schema.ErrConflict.Withf("container %q holds %q, not %q", container, last.Filename, splitter.Name())
		} else if last.Total != splitter.Total() {
			return nil, schema.ErrConflict.Withf("container %q holds %d parts of %q, file has %d parts", container, last.Total, last.Filename, splitter.Total())
		}
		index = last.Index
	}

	// Create the transfer
	t := manager.newTransfer(splitter.Name(), container, req.Path, splitter.Total(), index+1)
	t.Size = splitter.Size()
	setSpanAttributes(child, t)

	// Is the upload already complete?
	if index >= t.Parts {
		return manager.complete(t, fmt.Sprintf("%q is already complete", t.Name)), nil
	}

	// Position the source after the last stored chunk
	if err := splitter.Seek(index + 1); err != nil {
		return nil, err
	}
	manager.emit(t, schema.Event{
		Name:    schema.ResumeEvent,
		Index:   index + 1,
		Message: fmt.Sprintf("resuming %q from part %d of %d", t.Name, index+1, t.Parts),
	})

	return manager.send(child, t, splitter)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// send reads the remaining chunks from the splitter and sends each in turn
func (manager *Manager) send(ctx context.Context, t *schema.Transfer, splitter *chunk.Splitter) (*schema.Transfer, error) {
	t.State = schema.InProgress
	for {
		c, err := splitter.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return manager.incomplete(t, err)
		}

		// Pause before every batch of chunks
		if c.Index%schema.BatchPauseEvery == 0 {
			if err := manager.sleeper.Sleep(ctx, schema.BatchPause); err != nil {
				return manager.incomplete(t, err)
			}
		}

		// Send the chunk
		if err := manager.sendChunk(ctx, t, c); err != nil {
			return manager.incomplete(t, err)
		}
		t.Count++
		t.Bytes += int64(c.Size())
		manager.metrics.sent(ctx, t.Container, c.Size())
		manager.emit(t, schema.Event{Name: schema.ChunkEvent, Index: c.Index, Bytes: int64(c.Size())})

		// Pace after each chunk
		if err := manager.sleeper.Sleep(ctx, schema.ChunkPace); err != nil {
			return manager.incomplete(t, err)
		}
	}

	// The source may have shrunk since it was opened
	if sent := t.Start + t.Count - 1; sent < t.Parts {
		return manager.incomplete(t, schema.ErrUnexpected.Withf("source ended after part %d of %d", sent, t.Parts))
	}

	// Return success
	return manager.complete(t, fmt.Sprintf("upload of %q complete", t.Name)), nil
}

// sendChunk sends one chunk, retrying transient failures
func (manager *Manager) sendChunk(ctx context.Context, t *schema.Transfer, c *schema.Chunk) (err error) {
	name := chunk.Name(c.Name, c.Index, c.Total)
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("UploadChunk"))
	defer func() { endFunc(err) }()
	trace.SpanFromContext(child).SetAttributes(
		attribute.String("name", name),
		attribute.Int64("part", int64(c.Index)),
		attribute.Int("bytes", c.Size()),
	)

	_, err = manager.policy.Do(child, manager.sleeper, func(ctx context.Context, attempt int) error {
		_, err := manager.transport.SendObject(ctx, schema.SendObjectRequest{
			Container:   t.Container,
			Name:        name,
			ContentType: chunkContentType,
		}, bytes.NewReader(c.Payload))
		return attemptErr(err)
	}, manager.notify(child, t, "upload", c.Index))

	return err
}

// containerName returns the container for a filename and optional label
func containerName(filename, label string) string {
	if label != "" {
		return schema.ContainerLabel(label)
	}
	return schema.ContainerName(filename)
}

func setSpanAttributes(ctx context.Context, t *schema.Transfer) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("transfer", t.ID),
		attribute.String("container", t.Container),
		attribute.String("name", t.Name),
		attribute.Int64("parts", int64(t.Parts)),
		attribute.Int64("start", int64(t.Start)),
	)
}
