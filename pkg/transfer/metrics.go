package transfer

import (
	"context"
	"errors"

	// Packages
	attribute "go.opentelemetry.io/otel/attribute"
	metric "go.opentelemetry.io/otel/metric"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type metrics struct {
	chunksSent     metric.Int64Counter
	chunksReceived metric.Int64Counter
	retries        metric.Int64Counter
	bytesSent      metric.Int64Counter
	bytesReceived  metric.Int64Counter
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newMetrics(meter metric.Meter) (*metrics, error) {
	var result error
	self := new(metrics)
	counter := func(name, unit, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithUnit(unit), metric.WithDescription(description))
		result = errors.Join(result, err)
		return c
	}

	self.chunksSent = counter("filesplit.chunks.sent", "{chunk}", "Chunks stored in the transport")
	self.chunksReceived = counter("filesplit.chunks.received", "{chunk}", "Chunks fetched and written to an output file")
	self.retries = counter("filesplit.chunk.retries", "{attempt}", "Chunk attempts retried after a transient failure")
	self.bytesSent = counter("filesplit.bytes.sent", "By", "Payload bytes stored in the transport")
	self.bytesReceived = counter("filesplit.bytes.received", "By", "Payload bytes written to an output file")

	// Return any errors
	if result != nil {
		return nil, result
	}
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (m *metrics) sent(ctx context.Context, container string, bytes int) {
	attrs := metric.WithAttributes(attribute.String("container", container))
	m.chunksSent.Add(ctx, 1, attrs)
	m.bytesSent.Add(ctx, int64(bytes), attrs)
}

func (m *metrics) received(ctx context.Context, container string, bytes int64) {
	attrs := metric.WithAttributes(attribute.String("container", container))
	m.chunksReceived.Add(ctx, 1, attrs)
	m.bytesReceived.Add(ctx, bytes, attrs)
}

func (m *metrics) retried(ctx context.Context, container, op string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("container", container), attribute.String("op", op)))
}
