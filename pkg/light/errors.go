package light

import "errors"

var (
	// ErrInvalidDescriptor indicates a discovery record is missing required
	// fields. Localized to the offending candidate; never fatal to a scan.
	ErrInvalidDescriptor = errors.New("invalid device descriptor")

	// ErrUnsupported indicates no registered claim rule matches a descriptor.
	ErrUnsupported = errors.New("unsupported device")

	// ErrUnavailable indicates an open, read, or write failure, including
	// the device being unplugged mid-operation.
	ErrUnavailable = errors.New("device unavailable")

	// ErrNoLightsFound indicates a singular query found nothing to claim
	// and construct.
	ErrNoLightsFound = errors.New("no lights found")
)
