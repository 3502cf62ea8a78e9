// encoder_pool.go provides metrics-tracked RLP encoding for the
// envelope round-trip, the one place this module repeatedly encodes
// the same shape of value (a suspended Machine/Substate pair) across
// many host invocations of a single transaction.
package rlp

import "sync/atomic"

// EncoderMetrics tracks encoder usage for monitoring.
type EncoderMetrics struct {
	// TotalEncodes counts the total number of encode operations.
	TotalEncodes atomic.Int64
	// TotalBytes counts the total bytes of RLP output produced.
	TotalBytes atomic.Int64
}

// Snapshot returns a point-in-time copy of the encoder metrics.
func (m *EncoderMetrics) Snapshot() EncoderMetricsSnapshot {
	return EncoderMetricsSnapshot{
		TotalEncodes: m.TotalEncodes.Load(),
		TotalBytes:   m.TotalBytes.Load(),
	}
}

// EncoderMetricsSnapshot is a frozen copy of EncoderMetrics values.
type EncoderMetricsSnapshot struct {
	TotalEncodes int64
	TotalBytes   int64
}

// EncoderPool wraps EncodeToBytes with usage counters. It is not a
// sync.Pool of buffers: EncodeToBytes' reflection walk allocates its
// own scratch space per call, and at one envelope per suspend/resume
// boundary there is no hot loop worth pooling buffers for. What a host
// operator wants instead is throughput visibility, which is what
// EncoderMetrics gives them.
type EncoderPool struct {
	metrics EncoderMetrics
}

// NewEncoderPool creates a new encoder pool.
func NewEncoderPool() *EncoderPool {
	return &EncoderPool{}
}

// Metrics returns the pool's usage metrics.
func (ep *EncoderPool) Metrics() *EncoderMetrics {
	return &ep.metrics
}

// EncodeBytes encodes a single value and returns the RLP bytes,
// recording it against the pool's metrics.
func (ep *EncoderPool) EncodeBytes(val interface{}) ([]byte, error) {
	result, err := EncodeToBytes(val)
	if err != nil {
		return nil, err
	}
	ep.metrics.TotalEncodes.Add(1)
	ep.metrics.TotalBytes.Add(int64(len(result)))
	return result, nil
}
