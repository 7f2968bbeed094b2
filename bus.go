package bh1750fvi

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// AddressableReader is the blocking read side of an I2C bus master.
type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

// AddressableWriter is the blocking write side of an I2C bus master.
type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a synchronous bus master. Concrete implementations live in the
// i2c and adapter packages; i2c.AsyncBus bridges any of them onto the
// Transport contract the driver consumes.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
