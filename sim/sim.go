// Package sim emulates a BH1750FVI behind the driver's transport contract so
// tests and the command line can run without hardware.
package sim

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
	"github.com/denis-koshenkov/rohm-bh1750fvi/dispatch"
)

var _ bh1750fvi.Transport = &Sensor{}

type resolution int

const (
	resHigh resolution = iota
	resHigh2
	resLow
)

// Sensor models the chip's instruction set and registers: power state, the
// measurement-time register programmed in two halves, and the data register
// filled from a configurable ambient light level. Command completions are
// posted to the dispatch loop, never delivered synchronously, matching the
// transport contract. State is owned by the loop goroutine.
type Sensor struct {
	loop *dispatch.Loop
	addr byte

	light      float64
	powered    bool
	continuous bool
	res        resolution
	measTime   byte
	data       uint16
}

// New emulates a sensor strapped to the given bus address.
func New(loop *dispatch.Loop, addr byte) *Sensor {
	return &Sensor{
		loop:     loop,
		addr:     addr,
		measTime: bh1750fvi.DefaultMeasurementTime,
	}
}

// SetLight changes the ambient level the sensor sees, in lux. Call it from
// the loop goroutine, or while no sequence is in flight.
func (s *Sensor) SetLight(lux float64) {
	s.light = lux
}

func (s *Sensor) Write(address byte, data []byte, done func(error)) {
	err := s.apply(address, data)
	s.loop.Post(func() { done(err) })
}

func (s *Sensor) Read(address byte, buffer []byte, done func(error)) {
	err := s.fill(address, buffer)
	s.loop.Post(func() { done(err) })
}

func (s *Sensor) Start(d time.Duration, done func()) {
	time.AfterFunc(d, func() {
		s.loop.Post(done)
	})
}

func (s *Sensor) apply(address byte, data []byte) error {
	if address != s.addr {
		return fmt.Errorf("no ack from %#x", address)
	}
	if len(data) != 1 {
		return fmt.Errorf("unexpected command length %d", len(data))
	}
	op := data[0]
	switch {
	case op == 0b00000000:
		s.powered = false
		s.continuous = false
	case op == 0b00000001:
		s.powered = true
	case op == 0b00000111:
		// reset is ignored in power-down
		if s.powered {
			s.data = 0
		}
	case op == 0b00010000, op == 0b00010001, op == 0b00010011:
		s.powered = true
		s.continuous = true
		s.res = opResolution(op)
		s.data = s.sample()
	case op == 0b00100000, op == 0b00100001, op == 0b00100011:
		// one-shot: measure once, then the chip drops back to power-down
		s.continuous = false
		s.res = opResolution(op)
		s.data = s.sample()
		s.powered = false
	case op&0b11111000 == 0b01000000:
		s.measTime = s.measTime&0b00011111 | op<<5
	case op&0b11100000 == 0b01100000:
		s.measTime = s.measTime&0b11100000 | op&0b00011111
	default:
		return fmt.Errorf("unsupported opcode %#x", op)
	}
	return nil
}

func (s *Sensor) fill(address byte, buffer []byte) error {
	if address != s.addr {
		return fmt.Errorf("no ack from %#x", address)
	}
	if len(buffer) != 2 {
		return fmt.Errorf("unexpected read length %d", len(buffer))
	}
	// a running continuous measurement refreshes the data register
	if s.continuous && s.powered {
		s.data = s.sample()
	}
	binary.BigEndian.PutUint16(buffer, s.data)
	return nil
}

// sample synthesizes the raw count the chip would report for the configured
// light level: 1.2 counts per lux, scaled by the measurement time for the
// high-resolution modes, doubled for the half-lux mode.
func (s *Sensor) sample() uint16 {
	counts := s.light * 1.2
	switch s.res {
	case resHigh:
		counts *= float64(s.measTime) / float64(bh1750fvi.DefaultMeasurementTime)
	case resHigh2:
		counts *= float64(s.measTime) / float64(bh1750fvi.DefaultMeasurementTime)
		counts *= 2
	case resLow:
	}
	counts = math.Round(counts)
	if counts < 0 {
		return 0
	}
	if counts > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(counts)
}

func opResolution(op byte) resolution {
	switch op & 0b00000011 {
	case 0b01:
		return resHigh2
	case 0b11:
		return resLow
	}
	return resHigh
}
