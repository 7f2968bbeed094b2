package bh1750fvi

import (
	"errors"
	"fmt"
)

// Result classes reported by the driver. Synchronous rejections come back as
// the return value of the operation that was refused; asynchronous failures
// arrive through the completion callback. Match with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfMemory     = errors.New("instance allocation failed")
	ErrInvalidUsage    = errors.New("operation not allowed in current state")
	ErrBusy            = errors.New("command sequence in progress")
	ErrIO              = errors.New("i2c transaction failed")
	ErrDriver          = errors.New("internal driver error")
)

// ioError folds a transport failure into the ErrIO class while keeping the
// cause matchable.
func ioError(cause error) error {
	if cause == nil {
		return ErrIO
	}
	return fmt.Errorf("%w: %w", ErrIO, cause)
}
