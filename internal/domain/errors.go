package domain

import "errors"

var (
	// ErrStoreUnavailable is returned when the persistent store failed to open.
	// Callers degrade to memory-only operation; the condition is never fatal to
	// the host application.
	ErrStoreUnavailable = errors.New("persistent store unavailable")
	// ErrPartitionUnknown indicates an operation against a partition the store
	// was not opened with.
	ErrPartitionUnknown = errors.New("unknown store partition")
	// ErrDeliveryFailed indicates the remote endpoint rejected a sync record or
	// the transport failed; the record stays queued.
	ErrDeliveryFailed = errors.New("sync delivery failed")
)
