package transfer

import (
	"fmt"
	"io"

	// Packages
	filesplit "github.com/mutablelogic/go-filesplit"
	retry "github.com/mutablelogic/go-filesplit/pkg/retry"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	logrus "github.com/sirupsen/logrus"
	otel "go.opentelemetry.io/otel"
	metric "go.opentelemetry.io/otel/metric"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for the transfer manager
type Opt func(*opts) error

// ProgressFunc receives progress events while a transfer runs
type ProgressFunc func(schema.Event)

type opts struct {
	transport filesplit.Transport
	tracer    trace.Tracer
	meter     metric.Meter
	logger    logrus.FieldLogger
	chunkSize int64
	policy    retry.Policy
	sleeper   retry.Sleeper
	progress  ProgressFunc
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTransport sets the transport which stores the chunk objects
func WithTransport(transport filesplit.Transport) Opt {
	return func(o *opts) error {
		if transport == nil {
			return fmt.Errorf("transport is nil")
		}
		o.transport = transport
		return nil
	}
}

// WithTracer sets the tracer used for tracing transfers and chunks
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithMeter sets the meter for the transfer counters. The default meter
// comes from the global meter provider.
func WithMeter(meter metric.Meter) Opt {
	return func(o *opts) error {
		if meter == nil {
			return fmt.Errorf("meter is nil")
		}
		o.meter = meter
		return nil
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return fmt.Errorf("logger is nil")
		}
		o.logger = logger
		return nil
	}
}

// WithChunkSize sets the chunk size in bytes. Uploads and downloads of
// the same container need the same chunk size.
func WithChunkSize(size int64) Opt {
	return func(o *opts) error {
		if size <= 0 {
			return fmt.Errorf("invalid chunk size %d", size)
		}
		o.chunkSize = size
		return nil
	}
}

// WithPolicy sets the retry policy applied to each chunk
func WithPolicy(policy retry.Policy) Opt {
	return func(o *opts) error {
		if policy.Attempts < 1 {
			return fmt.Errorf("invalid number of attempts %d", policy.Attempts)
		} else if policy.Backoff < 0 || policy.Timeout < 0 {
			return fmt.Errorf("invalid retry policy %+v", policy)
		}
		o.policy = policy
		return nil
	}
}

// WithSleeper sets how the manager waits for backoff and pacing
func WithSleeper(sleeper retry.Sleeper) Opt {
	return func(o *opts) error {
		if sleeper == nil {
			return fmt.Errorf("sleeper is nil")
		}
		o.sleeper = sleeper
		return nil
	}
}

// WithProgress sets a callback for progress events. It is called from the
// goroutine running the transfer.
func WithProgress(fn ProgressFunc) Opt {
	return func(o *opts) error {
		o.progress = fn
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	o := opts{
		meter:     otel.GetMeterProvider().Meter(schema.SchemaName),
		logger:    logger,
		chunkSize: schema.ChunkSize,
		policy:    retry.Default(),
		sleeper:   retry.Clock,
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Check for a transport
	if o.transport == nil {
		return opts{}, fmt.Errorf("missing transport")
	}

	// Return success
	return o, nil
}
