package bh1750fvi

import "time"

// CompleteFunc receives the terminal outcome of a command sequence. A nil
// error means the whole sequence succeeded. The driver invokes it exactly
// once per accepted operation; a nil CompleteFunc is legal and simply drops
// the notification.
type CompleteFunc func(err error)

// Writer issues a single asynchronous I2C write transaction. Write must
// return without blocking and invoke done exactly once when the transaction
// settles, with a nil error on success. done must run on the same goroutine
// the Device API is driven from, and never synchronously from inside the
// Write call itself.
type Writer interface {
	Write(address byte, data []byte, done func(error))
}

// Reader issues a single asynchronous I2C read transaction into buffer.
// The buffer contents are meaningful only when done receives nil. The
// completion contract is the same as for Writer.
type Reader interface {
	Read(address byte, buffer []byte, done func(error))
}

// Timer schedules done to run once, no earlier than d from now. There is no
// upper bound and no cancellation; the driver only ever has one timer
// outstanding per device. done follows the same execution-context contract
// as the bus completions.
type Timer interface {
	Start(d time.Duration, done func())
}

// Transport bundles the three collaborators a Device needs. Implementations
// that cannot satisfy the completion contract natively can lean on
// dispatch.Loop the way i2c.AsyncBus does.
type Transport interface {
	Writer
	Reader
	Timer
}
