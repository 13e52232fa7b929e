package descriptors

import "github.com/cockroachdb/errors"

var (
	// ErrPoolExhausted is returned when a descriptor set could not be allocated even after
	// retrying against a fresh pool. The device is not expected to recover from this.
	ErrPoolExhausted = errors.New("descriptor pools exhausted")
	// ErrDeviceCall is returned when the device reports a failure that is not one of the
	// retryable pool exhaustion results
	ErrDeviceCall = errors.New("descriptor device call failed")
	// ErrInvalidRatios is returned when the pool size ratio table cannot produce a usable pool
	ErrInvalidRatios = errors.New("invalid descriptor pool ratios")
)
