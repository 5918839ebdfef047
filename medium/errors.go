package medium

import "errors"

// Sentinel errors for medium operations.
var (
	ErrRegionUnavailable = errors.New("region unavailable")
	ErrReadFailed        = errors.New("read failed")
	ErrWriteFailed       = errors.New("write failed")
	ErrNoRecord          = errors.New("no record at position")
	ErrSlotOutOfRange    = errors.New("slot out of range")
	ErrUnknownKind       = errors.New("unknown medium kind")
)
