package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedProfile = errors.New("unsupported routing profile")
	ErrRemoteQueryFailed  = errors.New("remote routing query failed")
	ErrUnreachableOrigin  = errors.New("origin unreachable within the requested breaks")
	ErrDegenerateKernel   = errors.New("smoothing kernel too small")
	ErrReassemblyMismatch = errors.New("chunk responses do not match the sampling grid")
	ErrInvalidBreaks      = errors.New("invalid breaks")
	ErrInvalidResolution  = errors.New("invalid grid resolution")
	ErrInvalidOrigin      = errors.New("invalid origin")
	ErrInvalidCoordinate  = errors.New("invalid coordinate")
	ErrInvalidCRS         = errors.New("invalid coordinate reference system")
	ErrInvalidServerClass = errors.New("invalid server class")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNotFound           = errors.New("not found")
)

// RemoteQueryError reports which chunk of a batched query failed.
// It matches ErrRemoteQueryFailed under errors.Is.
type RemoteQueryError struct {
	Chunk int
	Err   error
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("chunk %d: %v: %v", e.Chunk, ErrRemoteQueryFailed, e.Err)
}

func (e *RemoteQueryError) Unwrap() error { return e.Err }

func (e *RemoteQueryError) Is(target error) bool {
	return target == ErrRemoteQueryFailed
}

// IsInvalidInput reports whether err is a caller validation failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidBreaks) ||
		errors.Is(err, ErrInvalidResolution) ||
		errors.Is(err, ErrInvalidOrigin) ||
		errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrInvalidCRS) ||
		errors.Is(err, ErrInvalidServerClass) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrUnsupportedProfile)
}
