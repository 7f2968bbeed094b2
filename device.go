package bh1750fvi

import "fmt"

// I2C bus addresses selectable through the ADDR pin.
const (
	AddrLow  byte = 0b0100011
	AddrHigh byte = 0b1011100
)

// Mode selects the measurement resolution of the sensor.
type Mode byte

const (
	// ModeHighRes measures with 1 lx resolution, 180 ms window.
	ModeHighRes Mode = iota
	// ModeHighRes2 measures with 0.5 lx resolution, 180 ms window.
	ModeHighRes2
	// ModeLowRes measures with 4 lx resolution, 24 ms window.
	ModeLowRes
)

func (m Mode) String() string {
	switch m {
	case ModeHighRes:
		return "high-res"
	case ModeHighRes2:
		return "high-res2"
	case ModeLowRes:
		return "low-res"
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// Instruction opcodes, datasheet table 5.
const (
	opPowerDown byte = 0b00000000
	opPowerOn   byte = 0b00000001
	opReset     byte = 0b00000111

	opContinuousHighRes  byte = 0b00010000
	opContinuousHighRes2 byte = 0b00010001
	opContinuousLowRes   byte = 0b00010011

	opOneTimeHighRes  byte = 0b00100000
	opOneTimeHighRes2 byte = 0b00100001
	opOneTimeLowRes   byte = 0b00100011

	// The measurement-time register travels as two instructions: the upper
	// three bits ride in the low bits of opMeasTimeHigh, the lower five in
	// opMeasTimeLow.
	opMeasTimeHigh byte = 0b01000000
	opMeasTimeLow  byte = 0b01100000
)

// Measurement-time register bounds. Init programs the default; outside the
// legal range the sensitivity scaling is undefined.
const (
	MinMeasurementTime     byte = 31
	MaxMeasurementTime     byte = 254
	DefaultMeasurementTime byte = 69
)

// Device drives a single BH1750FVI over an asynchronous transport. Public
// operations validate synchronously, then issue a chain of bus and timer
// steps; the terminal outcome arrives through the CompleteFunc exactly once.
// Only one sequence can be in flight per instance; overlapping calls are
// rejected with ErrBusy.
//
// A Device is deliberately not safe for concurrent use: all methods and all
// transport completions must run on one goroutine (dispatch.Loop provides
// such a context when the caller has none).
type Device struct {
	writer Writer
	reader Reader
	timer  Timer
	addr   byte

	busy     bool
	complete CompleteFunc

	initialized bool
	continuous  bool
	measTime    byte
	mode        Mode
	buf         [2]byte
	out         *uint32
}

// Config carries the collaborators a Device is created with. All four
// collaborators are required; Addr must be AddrLow or AddrHigh.
type Config struct {
	Allocate AllocateFunc
	Writer   Writer
	Reader   Reader
	Timer    Timer
	Addr     byte
}

// NewConfig fills a Config for the common case: one Transport implementation
// covering all three collaborator roles and heap-allocated instances.
func NewConfig(transport Transport, addr byte) Config {
	return Config{
		Allocate: HeapAllocate,
		Writer:   transport,
		Reader:   transport,
		Timer:    transport,
		Addr:     addr,
	}
}

// Create validates the configuration, claims instance memory from the
// allocator and returns a powered-down, uninitialized device. No bus traffic
// happens here.
func Create(cfg Config) (*Device, error) {
	if cfg.Allocate == nil {
		return nil, fmt.Errorf("nil allocator: %w", ErrInvalidArgument)
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("nil bus writer: %w", ErrInvalidArgument)
	}
	if cfg.Reader == nil {
		return nil, fmt.Errorf("nil bus reader: %w", ErrInvalidArgument)
	}
	if cfg.Timer == nil {
		return nil, fmt.Errorf("nil timer: %w", ErrInvalidArgument)
	}
	if cfg.Addr != AddrLow && cfg.Addr != AddrHigh {
		return nil, fmt.Errorf("illegal bus address %#x: %w", cfg.Addr, ErrInvalidArgument)
	}
	d := cfg.Allocate()
	if d == nil {
		return nil, ErrOutOfMemory
	}
	*d = Device{
		writer: cfg.Writer,
		reader: cfg.Reader,
		timer:  cfg.Timer,
		addr:   cfg.Addr,
	}
	return d, nil
}

// Destroy hands the instance memory back through free. It is rejected while
// a sequence is in flight and is legal on a device that was never
// initialized. A nil free is allowed for heap-backed instances.
func (d *Device) Destroy(free FreeFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	if free != nil {
		free(d)
	}
	return nil
}

// Init powers the sensor on and programs the default measurement time. Until
// Init resolves successfully every other sequence is rejected with
// ErrInvalidUsage. A failed Init leaves the device uninitialized; the
// measurement-time shadow keeps whatever halves the sensor acknowledged
// before the failure.
func (d *Device) Init(complete CompleteFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	if d.initialized {
		return fmt.Errorf("already initialized: %w", ErrInvalidUsage)
	}
	d.begin(complete)
	d.command(opPowerOn, func(err error) {
		if err != nil {
			d.finish(err)
			return
		}
		d.setTimeHalves(DefaultMeasurementTime, func(err error) {
			if err != nil {
				d.finish(err)
				return
			}
			d.initialized = true
			d.finish(nil)
		})
	})
	return nil
}

// PowerOn wakes the sensor from power-down.
func (d *Device) PowerOn(complete CompleteFunc) error {
	return d.simpleCommand(opPowerOn, complete)
}

// PowerDown puts the sensor into its idle low-power state. Driver state is
// untouched; in particular a previously started continuous mode is still
// considered active.
func (d *Device) PowerDown(complete CompleteFunc) error {
	return d.simpleCommand(opPowerDown, complete)
}

// Reset clears the sensor's data register. Nothing else changes on either
// side.
func (d *Device) Reset(complete CompleteFunc) error {
	return d.simpleCommand(opReset, complete)
}

func (d *Device) simpleCommand(op byte, complete CompleteFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	if !d.initialized {
		return fmt.Errorf("not initialized: %w", ErrInvalidUsage)
	}
	d.begin(complete)
	d.command(op, d.finish)
	return nil
}

// begin opens a sequence. Callers have already passed the synchronous
// checks.
func (d *Device) begin(complete CompleteFunc) {
	d.busy = true
	d.complete = complete
}

// finish closes the current sequence and reports err to the caller. The busy
// flag drops before the callback runs so the callback can start the next
// sequence immediately.
func (d *Device) finish(err error) {
	cb := d.complete
	d.complete = nil
	d.busy = false
	d.out = nil
	if cb != nil {
		cb(err)
	}
}

// command writes a single opcode and reports the transaction outcome, folded
// into the driver's error classes.
func (d *Device) command(op byte, done func(error)) {
	d.buf[0] = op
	d.writer.Write(d.addr, d.buf[:1], func(err error) {
		if err != nil {
			done(ioError(err))
			return
		}
		done(nil)
	})
}

// setTimeHalves transfers value into the sensor's measurement-time register
// as the two-part instruction. Each shadow half commits as soon as the
// sensor acknowledges its write, so a failure on the second instruction
// leaves a mixed shadow that matches exactly what the hardware accepted.
func (d *Device) setTimeHalves(value byte, done func(error)) {
	d.command(opMeasTimeHigh|value>>5, func(err error) {
		if err != nil {
			done(err)
			return
		}
		d.measTime = d.measTime&0b00011111 | value&0b11100000
		d.command(opMeasTimeLow|value&0b00011111, func(err error) {
			if err != nil {
				done(err)
				return
			}
			d.measTime = d.measTime&0b11100000 | value&0b00011111
			done(nil)
		})
	})
}
