// Package transfer moves files through a transport as ordered chunk
// objects. Upload and Resume split a source file and send its chunks;
// Download and DownloadFromPart fetch the chunks back and reassemble the
// file. The only state shared between operations is the container's
// ledger, so an interrupted operation can always be continued by a new
// process.
package transfer

import (
	"context"
	"errors"

	// Packages
	uuid "github.com/google/uuid"
	otel "github.com/mutablelogic/go-client/pkg/otel"
	ledger "github.com/mutablelogic/go-filesplit/pkg/ledger"
	retry "github.com/mutablelogic/go-filesplit/pkg/retry"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	logrus "github.com/sirupsen/logrus"
	attribute "go.opentelemetry.io/otel/attribute"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Manager struct {
	opts
	registry *Registry
	metrics  *metrics
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a transfer manager. A transport is required.
func New(opts ...Opt) (*Manager, error) {
	self := new(Manager)
	self.registry = NewRegistry()

	// Apply options
	if opt, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = opt
	}

	// Create the counters
	if metrics, err := newMetrics(self.meter); err != nil {
		return nil, err
	} else {
		self.metrics = metrics
	}

	// Return success
	return self, nil
}

// Close the transport
func (manager *Manager) Close() error {
	return manager.transport.Close()
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Registry returns the containers created by uploads in this process
func (manager *Manager) Registry() *Registry {
	return manager.registry
}

// ChunkSize returns the chunk size in bytes
func (manager *Manager) ChunkSize() int64 {
	return manager.chunkSize
}

// Containers returns the containers in the transport
func (manager *Manager) Containers(ctx context.Context) (_ []schema.Container, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("Containers"))
	defer func() { endFunc(err) }()

	return manager.transport.ListContainers(child)
}

// Entries returns the classified ledger of a container, in the given order
func (manager *Manager) Entries(ctx context.Context, container string, order schema.Order) (_ []ledger.Entry, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanName("Entries"))
	defer func() { endFunc(err) }()
	trace.SpanFromContext(child).SetAttributes(attribute.String("container", container))

	return ledger.New(manager.transport, container).Entries(child, order)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func spanName(op string) string {
	return schema.SchemaName + ".transfer." + op
}

// newTransfer returns a transfer with a fresh identifier
func (manager *Manager) newTransfer(name, container, path string, parts, start uint64) *schema.Transfer {
	return &schema.Transfer{
		ID:        uuid.NewString(),
		Name:      name,
		Container: container,
		Path:      path,
		ChunkSize: manager.chunkSize,
		Parts:     parts,
		Start:     start,
		State:     schema.NotStarted,
	}
}

// log returns a logger with the fields of the transfer
func (manager *Manager) log(t *schema.Transfer) logrus.FieldLogger {
	return manager.logger.WithFields(logrus.Fields{
		"transfer":  t.ID,
		"container": t.Container,
		"total":     t.Parts,
	})
}

// emit sends an event to the logger and the progress callback
func (manager *Manager) emit(t *schema.Transfer, event schema.Event) {
	event.Transfer = t.ID
	event.Container = t.Container
	event.Filename = t.Name
	event.Total = t.Parts

	// Log the event
	log := manager.log(t).WithField("event", event.Name)
	if event.Index > 0 {
		log = log.WithField("part", event.Index)
	}
	switch event.Name {
	case schema.ChunkEvent:
		log.Debugf("%s part %d of %d", event.Filename, event.Index, event.Total)
	case schema.RetryEvent:
		log.WithField("remaining", event.Remaining).Warn(event.Message)
	case schema.IncompleteEvent:
		log.Error(event.Message)
	default:
		log.Info(event.Message)
	}

	// Call the progress callback
	if manager.progress != nil {
		manager.progress(event)
	}
}

// complete marks the transfer as complete
func (manager *Manager) complete(t *schema.Transfer, message string) *schema.Transfer {
	t.State = schema.Completed
	manager.emit(t, schema.Event{Name: schema.CompleteEvent, Bytes: t.Bytes, Message: message})
	return t
}

// incomplete marks the transfer as halted and returns an error wrapping
// schema.ErrIncomplete and the cause. Chunks already stored are kept.
func (manager *Manager) incomplete(t *schema.Transfer, cause error) (*schema.Transfer, error) {
	t.State = schema.Incomplete
	t.Error = cause.Error()
	next := t.Start + t.Count
	manager.emit(t, schema.Event{Name: schema.IncompleteEvent, Index: next, Bytes: t.Bytes, Message: t.Error})
	return t, schema.ErrIncomplete.Withf("%q halted at part %d of %d: %w", t.Name, next, t.Parts, cause)
}

// notify returns a retry callback which counts and reports each retry
func (manager *Manager) notify(ctx context.Context, t *schema.Transfer, op string, index uint64) retry.NotifyFunc {
	return func(attempt, remaining int, err error) {
		manager.metrics.retried(ctx, t.Container, op)
		manager.log(t).WithFields(logrus.Fields{"part": index, "attempt": attempt}).Debug(err)
		manager.emit(t, schema.Event{
			Name:      schema.RetryEvent,
			Index:     index,
			Remaining: remaining,
			Message:   err.Error(),
		})
	}
}

// attemptErr marks an error from the transport which is not transient as
// unexpected, so no further attempts are made
func attemptErr(err error) error {
	if err == nil || retry.IsTransient(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return schema.ErrUnexpected.Withf("%w", err)
}
