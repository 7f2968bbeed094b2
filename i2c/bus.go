// Package i2c provides synchronous bus masters and the bridge that turns any
// of them into the asynchronous transport the driver consumes.
package i2c

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
)

var _ bh1750fvi.I2CBus = &GenericBus{}

// GenericBus drives any Linux I2C device through periph.io.
type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus initializes the periph host drivers and opens the named bus
// ("/dev/i2c-1", "1", or "" for the first available one).
func NewGenericBus(dev string) (*GenericBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

// SetSpeed changes the bus clock when the underlying driver supports it.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
