package i2c

import (
	"context"
	"fmt"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
)

var _ bh1750fvi.I2CBus = &GobotBus{}

// GobotBus drives the sensor through any gobot platform adaptor. Connections
// are opened lazily per target address and cached for reuse.
type GobotBus struct {
	adaptor gi2c.Connector
	busNr   int
	conns   map[byte]gi2c.Connection
}

// NewGobotBus wraps a connected gobot adaptor. busNr < 0 selects the
// platform's default bus.
func NewGobotBus(adaptor gi2c.Connector, busNr int) *GobotBus {
	if busNr < 0 {
		busNr = adaptor.DefaultI2cBus()
	}
	return &GobotBus{
		adaptor: adaptor,
		busNr:   busNr,
		conns:   make(map[byte]gi2c.Connection),
	}
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

func (b *GobotBus) Close() error {
	var first error
	for addr, conn := range b.conns {
		if err := conn.Close(); err != nil && first == nil {
			first = fmt.Errorf("could not close connection to %x: %w", addr, err)
		}
		delete(b.conns, addr)
	}
	return first
}

func (b *GobotBus) connection(address byte) (gi2c.Connection, error) {
	if conn, ok := b.conns[address]; ok {
		return conn, nil
	}
	conn, err := b.adaptor.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %x on bus %d: %w", address, b.busNr, err)
	}
	b.conns[address] = conn
	return conn, nil
}
