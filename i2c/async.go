package i2c

import (
	"context"
	"time"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
	"github.com/denis-koshenkov/rohm-bh1750fvi/dispatch"
)

var _ bh1750fvi.Transport = &AsyncBus{}

// AsyncBus turns a synchronous I2CBus into the driver transport. Each
// transaction runs on its own goroutine; its completion is posted back to
// the dispatch loop, which must be the same loop the Device API is driven
// from. The driver keeps at most one transaction in flight per instance, so
// transaction order is preserved.
type AsyncBus struct {
	ctx  context.Context
	bus  bh1750fvi.I2CBus
	loop *dispatch.Loop
}

// NewAsyncBus wraps bus. ctx is handed to every transaction; it scopes
// bus-level concerns such as verbose tracing, not cancellation (the driver
// has no cancellation semantics).
func NewAsyncBus(ctx context.Context, bus bh1750fvi.I2CBus, loop *dispatch.Loop) *AsyncBus {
	return &AsyncBus{ctx: ctx, bus: bus, loop: loop}
}

func (b *AsyncBus) Write(address byte, data []byte, done func(error)) {
	go func() {
		err := b.bus.WriteToAddr(b.ctx, address, data)
		b.loop.Post(func() { done(err) })
	}()
}

func (b *AsyncBus) Read(address byte, buffer []byte, done func(error)) {
	go func() {
		err := b.bus.ReadFromAddr(b.ctx, address, buffer)
		b.loop.Post(func() { done(err) })
	}()
}

func (b *AsyncBus) Start(d time.Duration, done func()) {
	time.AfterFunc(d, func() {
		b.loop.Post(done)
	})
}
