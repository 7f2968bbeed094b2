package bh1750fvi

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records bus and timer requests so tests can resolve every
// sequence step explicitly, in driver order.
type fakeTransport struct {
	writes []writeCall
	reads  []readCall
	timers []timerCall
}

type writeCall struct {
	addr byte
	data []byte
	done func(error)
}

type readCall struct {
	addr   byte
	buffer []byte
	done   func(error)
}

type timerCall struct {
	d    time.Duration
	done func()
}

func (f *fakeTransport) Write(addr byte, data []byte, done func(error)) {
	// the driver reuses its scratch buffer, keep a copy of the bytes
	f.writes = append(f.writes, writeCall{addr, append([]byte(nil), data...), done})
}

func (f *fakeTransport) Read(addr byte, buffer []byte, done func(error)) {
	f.reads = append(f.reads, readCall{addr, buffer, done})
}

func (f *fakeTransport) Start(d time.Duration, done func()) {
	f.timers = append(f.timers, timerCall{d, done})
}

func (f *fakeTransport) popWrite(t *testing.T) writeCall {
	t.Helper()
	require.NotEmpty(t, f.writes, "expected a pending bus write")
	c := f.writes[0]
	f.writes = f.writes[1:]
	return c
}

func (f *fakeTransport) popRead(t *testing.T) readCall {
	t.Helper()
	require.NotEmpty(t, f.reads, "expected a pending bus read")
	c := f.reads[0]
	f.reads = f.reads[1:]
	return c
}

func (f *fakeTransport) popTimer(t *testing.T) timerCall {
	t.Helper()
	require.NotEmpty(t, f.timers, "expected a pending timer")
	c := f.timers[0]
	f.timers = f.timers[1:]
	return c
}

func (f *fakeTransport) idle(t *testing.T) {
	t.Helper()
	assert.Empty(t, f.writes, "unexpected pending writes")
	assert.Empty(t, f.reads, "unexpected pending reads")
	assert.Empty(t, f.timers, "unexpected pending timers")
}

// result counts terminal callbacks of one sequence.
type result struct {
	calls int
	err   error
}

func (r *result) complete(err error) {
	r.calls++
	r.err = err
}

func newTestDevice(t *testing.T, addr byte) (*Device, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	d, err := Create(NewConfig(ft, addr))
	require.NoError(t, err)
	return d, ft
}

// initDevice drives the initialization sequence to a successful end.
func initDevice(t *testing.T, d *Device, ft *fakeTransport) {
	t.Helper()
	var res result
	require.NoError(t, d.Init(res.complete))
	ft.popWrite(t).done(nil) // power on
	ft.popWrite(t).done(nil) // measurement time, high half
	ft.popWrite(t).done(nil) // measurement time, low half
	require.Equal(t, 1, res.calls)
	require.NoError(t, res.err)
}

// setTime drives a SetMeasurementTime sequence to a successful end.
func setTime(t *testing.T, d *Device, ft *fakeTransport, value byte) {
	t.Helper()
	var res result
	require.NoError(t, d.SetMeasurementTime(value, res.complete))
	ft.popWrite(t).done(nil)
	ft.popWrite(t).done(nil)
	require.Equal(t, 1, res.calls)
	require.NoError(t, res.err)
}

func TestDevice_Create(t *testing.T) {
	ft := &fakeTransport{}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"nil allocator", func(c *Config) { c.Allocate = nil }, ErrInvalidArgument},
		{"nil writer", func(c *Config) { c.Writer = nil }, ErrInvalidArgument},
		{"nil reader", func(c *Config) { c.Reader = nil }, ErrInvalidArgument},
		{"nil timer", func(c *Config) { c.Timer = nil }, ErrInvalidArgument},
		{"illegal address", func(c *Config) { c.Addr = 0x42 }, ErrInvalidArgument},
		{"allocator exhausted", func(c *Config) { c.Allocate = func() *Device { return nil } }, ErrOutOfMemory},
		{"addr pin low", func(c *Config) { c.Addr = AddrLow }, nil},
		{"addr pin high", func(c *Config) { c.Addr = AddrHigh }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(ft, AddrLow)
			tt.mutate(&cfg)
			d, err := Create(cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, d)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, d)
		})
	}
}

func TestDevice_Create_ReusesRecycledMemory(t *testing.T) {
	ft := &fakeTransport{}
	dirty := &Device{measTime: 0xAA, initialized: true, busy: true}
	cfg := NewConfig(ft, AddrHigh)
	cfg.Allocate = func() *Device { return dirty }

	d, err := Create(cfg)
	require.NoError(t, err)
	require.Same(t, dirty, d)
	assert.Equal(t, byte(0), d.MeasurementTime())
	// a recycled instance starts uninitialized again
	assert.ErrorIs(t, d.PowerOn(nil), ErrInvalidUsage)
}

func TestDevice_Init(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	var res result
	require.NoError(t, d.Init(res.complete))
	assert.Zero(t, res.calls)

	w := ft.popWrite(t)
	assert.Equal(t, AddrLow, w.addr)
	assert.Equal(t, []byte{0b00000001}, w.data)
	w.done(nil)

	w = ft.popWrite(t)
	assert.Equal(t, []byte{0b01000010}, w.data) // high half of 69
	w.done(nil)

	w = ft.popWrite(t)
	assert.Equal(t, []byte{0b01100101}, w.data) // low half of 69
	w.done(nil)

	require.Equal(t, 1, res.calls)
	assert.NoError(t, res.err)
	assert.Equal(t, DefaultMeasurementTime, d.MeasurementTime())
	ft.idle(t)

	assert.ErrorIs(t, d.Init(nil), ErrInvalidUsage)
}

func TestDevice_Init_StepFailure(t *testing.T) {
	cause := errors.New("no ack")
	tests := []struct {
		name       string
		failStep   int
		wantShadow byte
	}{
		{"power on fails", 0, 0},
		{"high half fails", 1, 0},
		{"low half fails", 2, 0b01000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft := newTestDevice(t, AddrLow)
			var res result
			require.NoError(t, d.Init(res.complete))
			for step := 0; step < tt.failStep; step++ {
				ft.popWrite(t).done(nil)
			}
			ft.popWrite(t).done(cause)

			require.Equal(t, 1, res.calls)
			assert.ErrorIs(t, res.err, ErrIO)
			assert.ErrorIs(t, res.err, cause)
			assert.Equal(t, tt.wantShadow, d.MeasurementTime())
			ft.idle(t)

			// still uninitialized, but free for another attempt
			assert.ErrorIs(t, d.PowerOn(nil), ErrInvalidUsage)
			initDevice(t, d, ft)
			assert.Equal(t, DefaultMeasurementTime, d.MeasurementTime())
		})
	}
}

func TestDevice_PowerCommands(t *testing.T) {
	tests := []struct {
		name string
		call func(*Device, CompleteFunc) error
		want byte
	}{
		{"power on", (*Device).PowerOn, 0b00000001},
		{"power down", (*Device).PowerDown, 0b00000000},
		{"reset", (*Device).Reset, 0b00000111},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft := newTestDevice(t, AddrHigh)
			initDevice(t, d, ft)

			var res result
			require.NoError(t, tt.call(d, res.complete))
			w := ft.popWrite(t)
			assert.Equal(t, AddrHigh, w.addr)
			assert.Equal(t, []byte{tt.want}, w.data)
			w.done(nil)

			require.Equal(t, 1, res.calls)
			assert.NoError(t, res.err)
			ft.idle(t)
		})
	}
}

func TestDevice_PowerDownKeepsContinuousActive(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var res result
	require.NoError(t, d.StartContinuous(ModeHighRes, res.complete))
	ft.popWrite(t).done(nil)
	require.NoError(t, res.err)

	require.NoError(t, d.PowerDown(res.complete))
	ft.popWrite(t).done(nil)
	require.NoError(t, res.err)

	// the driver does not second-guess the power state
	var lux uint32
	require.NoError(t, d.ReadContinuous(&lux, res.complete))
	r := ft.popRead(t)
	copy(r.buffer, []byte{0x00, 0x60})
	r.done(nil)
	assert.NoError(t, res.err)
	assert.Equal(t, uint32(80), lux)
}

func TestDevice_NilReceiver(t *testing.T) {
	var d *Device
	var lux uint32
	tests := []struct {
		name string
		call func() error
	}{
		{"Init", func() error { return d.Init(nil) }},
		{"PowerOn", func() error { return d.PowerOn(nil) }},
		{"PowerDown", func() error { return d.PowerDown(nil) }},
		{"Reset", func() error { return d.Reset(nil) }},
		{"StartContinuous", func() error { return d.StartContinuous(ModeHighRes, nil) }},
		{"ReadContinuous", func() error { return d.ReadContinuous(&lux, nil) }},
		{"ReadOneTime", func() error { return d.ReadOneTime(ModeHighRes, &lux, nil) }},
		{"SetMeasurementTime", func() error { return d.SetMeasurementTime(100, nil) }},
		{"Destroy", func() error { return d.Destroy(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrInvalidArgument)
		})
	}
}

func TestDevice_RequiresInit(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	var lux uint32
	tests := []struct {
		name string
		call func() error
	}{
		{"PowerOn", func() error { return d.PowerOn(nil) }},
		{"PowerDown", func() error { return d.PowerDown(nil) }},
		{"Reset", func() error { return d.Reset(nil) }},
		{"StartContinuous", func() error { return d.StartContinuous(ModeLowRes, nil) }},
		{"ReadContinuous", func() error { return d.ReadContinuous(&lux, nil) }},
		{"ReadOneTime", func() error { return d.ReadOneTime(ModeLowRes, &lux, nil) }},
		{"SetMeasurementTime", func() error { return d.SetMeasurementTime(100, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrInvalidUsage)
		})
	}
	ft.idle(t)
}

func TestDevice_ArgumentChecksPrecedeStateChecks(t *testing.T) {
	// the device is not initialized, yet bad arguments win
	d, ft := newTestDevice(t, AddrLow)
	var lux uint32
	assert.ErrorIs(t, d.StartContinuous(Mode(42), nil), ErrInvalidArgument)
	assert.ErrorIs(t, d.ReadContinuous(nil, nil), ErrInvalidArgument)
	assert.ErrorIs(t, d.ReadOneTime(Mode(42), &lux, nil), ErrInvalidArgument)
	assert.ErrorIs(t, d.SetMeasurementTime(0, nil), ErrInvalidArgument)
	ft.idle(t)
}

func TestDevice_BusyRejection(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	// leave a sequence hanging on its bus write
	var res result
	require.NoError(t, d.PowerOn(res.complete))

	var lux uint32
	tests := []struct {
		name string
		call func() error
	}{
		{"Init", func() error { return d.Init(nil) }},
		{"PowerOn", func() error { return d.PowerOn(nil) }},
		{"PowerDown", func() error { return d.PowerDown(nil) }},
		{"Reset", func() error { return d.Reset(nil) }},
		{"StartContinuous", func() error { return d.StartContinuous(ModeHighRes, nil) }},
		{"ReadContinuous", func() error { return d.ReadContinuous(&lux, nil) }},
		{"ReadOneTime", func() error { return d.ReadOneTime(ModeHighRes, &lux, nil) }},
		{"SetMeasurementTime", func() error { return d.SetMeasurementTime(100, nil) }},
		{"Destroy", func() error { return d.Destroy(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrBusy)
		})
	}
	assert.Zero(t, res.calls)

	ft.popWrite(t).done(nil)
	require.Equal(t, 1, res.calls)
	assert.NoError(t, res.err)

	// the instance is free again
	require.NoError(t, d.PowerDown(nil))
	ft.popWrite(t).done(nil)
}

func TestDevice_StartContinuous(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want byte
	}{
		{"high res", ModeHighRes, 0b00010000},
		{"high res2", ModeHighRes2, 0b00010001},
		{"low res", ModeLowRes, 0b00010011},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft := newTestDevice(t, AddrLow)
			initDevice(t, d, ft)

			var res result
			require.NoError(t, d.StartContinuous(tt.mode, res.complete))
			w := ft.popWrite(t)
			assert.Equal(t, []byte{tt.want}, w.data)
			w.done(nil)

			require.Equal(t, 1, res.calls)
			assert.NoError(t, res.err)

			// continuous reads are now legal
			var lux uint32
			require.NoError(t, d.ReadContinuous(&lux, res.complete))
			r := ft.popRead(t)
			copy(r.buffer, []byte{0x00, 0x00})
			r.done(nil)
		})
	}
}

func TestDevice_StartContinuous_FailureDropsActiveMode(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var res result
	require.NoError(t, d.StartContinuous(ModeHighRes, res.complete))
	ft.popWrite(t).done(nil)
	require.NoError(t, res.err)

	// a failed restart loses the previous mode as well: the driver only
	// knows the last start was not acknowledged
	require.NoError(t, d.StartContinuous(ModeHighRes2, res.complete))
	ft.popWrite(t).done(errors.New("no ack"))
	require.Equal(t, 2, res.calls)
	assert.ErrorIs(t, res.err, ErrIO)

	var lux uint32
	assert.ErrorIs(t, d.ReadContinuous(&lux, nil), ErrInvalidUsage)
}

func TestDevice_ReadContinuous(t *testing.T) {
	tests := []struct {
		name string
		addr byte
		mode Mode
		raw  []byte
		want uint32
	}{
		{"high res", AddrLow, ModeHighRes, []byte{0x83, 0x90}, 28067},
		{"high res2", AddrLow, ModeHighRes2, []byte{0x83, 0x90}, 14033},
		{"low res", AddrLow, ModeLowRes, []byte{0x83, 0x90}, 28067},
		{"high res alt address", AddrHigh, ModeHighRes, []byte{0x83, 0x90}, 28067},
		{"dark", AddrLow, ModeHighRes, []byte{0x00, 0x00}, 0},
		{"saturated", AddrLow, ModeHighRes, []byte{0xFF, 0xFF}, 54613},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft := newTestDevice(t, tt.addr)
			initDevice(t, d, ft)

			var res result
			require.NoError(t, d.StartContinuous(tt.mode, res.complete))
			ft.popWrite(t).done(nil)
			require.NoError(t, res.err)

			var lux uint32
			require.NoError(t, d.ReadContinuous(&lux, res.complete))
			r := ft.popRead(t)
			assert.Equal(t, tt.addr, r.addr)
			require.Len(t, r.buffer, 2)
			copy(r.buffer, tt.raw)
			r.done(nil)

			require.Equal(t, 2, res.calls)
			assert.NoError(t, res.err)
			assert.Equal(t, tt.want, lux)
			ft.idle(t)
		})
	}
}

func TestDevice_ReadContinuous_Failure(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var res result
	require.NoError(t, d.StartContinuous(ModeHighRes, res.complete))
	ft.popWrite(t).done(nil)

	lux := uint32(4242)
	require.NoError(t, d.ReadContinuous(&lux, res.complete))
	ft.popRead(t).done(errors.New("bus stuck"))

	require.Equal(t, 2, res.calls)
	assert.ErrorIs(t, res.err, ErrIO)
	assert.Equal(t, uint32(4242), lux, "result must stay untouched on failure")

	// the active mode survives a failed read
	require.NoError(t, d.ReadContinuous(&lux, res.complete))
	r := ft.popRead(t)
	copy(r.buffer, []byte{0x83, 0x90})
	r.done(nil)
	assert.NoError(t, res.err)
	assert.Equal(t, uint32(28067), lux)
}

func TestDevice_ReadContinuous_NotStarted(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var lux uint32
	assert.ErrorIs(t, d.ReadContinuous(&lux, nil), ErrInvalidUsage)
	ft.idle(t)
}

func TestDevice_ReadOneTime(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var res result
	var lux uint32
	require.NoError(t, d.ReadOneTime(ModeHighRes, &lux, res.complete))

	w := ft.popWrite(t)
	assert.Equal(t, []byte{0b00100000}, w.data)
	w.done(nil)

	// the device stays claimed while the conversion runs
	assert.ErrorIs(t, d.PowerOn(nil), ErrBusy)

	tm := ft.popTimer(t)
	assert.Equal(t, 180*time.Millisecond, tm.d)
	tm.done()

	r := ft.popRead(t)
	require.Len(t, r.buffer, 2)
	copy(r.buffer, []byte{0x83, 0x90})
	r.done(nil)

	require.Equal(t, 1, res.calls)
	assert.NoError(t, res.err)
	assert.Equal(t, uint32(28067), lux)
	ft.idle(t)
}

func TestDevice_ReadOneTime_Opcodes(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want byte
		wait time.Duration
	}{
		{"high res", ModeHighRes, 0b00100000, 180 * time.Millisecond},
		{"high res2", ModeHighRes2, 0b00100001, 180 * time.Millisecond},
		{"low res", ModeLowRes, 0b00100011, 24 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft := newTestDevice(t, AddrLow)
			initDevice(t, d, ft)

			var res result
			var lux uint32
			require.NoError(t, d.ReadOneTime(tt.mode, &lux, res.complete))
			w := ft.popWrite(t)
			assert.Equal(t, []byte{tt.want}, w.data)
			w.done(nil)

			tm := ft.popTimer(t)
			assert.Equal(t, tt.wait, tm.d)
			tm.done()

			r := ft.popRead(t)
			copy(r.buffer, []byte{0x83, 0x90})
			r.done(nil)
			require.Equal(t, 1, res.calls)
			assert.NoError(t, res.err)
		})
	}
}

func TestDevice_ReadOneTime_WaitScalesWithMeasurementTime(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		measTime byte
		wait     time.Duration
	}{
		{"shortened high res", ModeHighRes, 32, 84 * time.Millisecond},
		{"stretched high res", ModeHighRes, 254, 663 * time.Millisecond},
		{"minimum low res", ModeLowRes, 31, 11 * time.Millisecond},
		{"stretched high res2", ModeHighRes2, 138, 360 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft := newTestDevice(t, AddrLow)
			initDevice(t, d, ft)
			setTime(t, d, ft, tt.measTime)

			var res result
			var lux uint32
			require.NoError(t, d.ReadOneTime(tt.mode, &lux, res.complete))
			ft.popWrite(t).done(nil)

			tm := ft.popTimer(t)
			assert.Equal(t, tt.wait, tm.d)
			tm.done()

			r := ft.popRead(t)
			copy(r.buffer, []byte{0x00, 0x00})
			r.done(nil)
			require.Equal(t, 1, res.calls)
		})
	}
}

func TestDevice_ReadOneTime_StepFailure(t *testing.T) {
	cause := errors.New("no ack")

	t.Run("command write fails", func(t *testing.T) {
		d, ft := newTestDevice(t, AddrLow)
		initDevice(t, d, ft)

		var res result
		var lux uint32
		require.NoError(t, d.ReadOneTime(ModeHighRes, &lux, res.complete))
		ft.popWrite(t).done(cause)

		require.Equal(t, 1, res.calls)
		assert.ErrorIs(t, res.err, ErrIO)
		ft.idle(t) // no timer was started
	})

	t.Run("result read fails", func(t *testing.T) {
		d, ft := newTestDevice(t, AddrLow)
		initDevice(t, d, ft)

		var res result
		lux := uint32(4242)
		require.NoError(t, d.ReadOneTime(ModeHighRes, &lux, res.complete))
		ft.popWrite(t).done(nil)
		ft.popTimer(t).done()
		ft.popRead(t).done(cause)

		require.Equal(t, 1, res.calls)
		assert.ErrorIs(t, res.err, ErrIO)
		assert.Equal(t, uint32(4242), lux)
		ft.idle(t)
	})
}

func TestDevice_SetMeasurementTime(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var res result
	require.NoError(t, d.SetMeasurementTime(254, res.complete))

	w := ft.popWrite(t)
	assert.Equal(t, []byte{0b01000111}, w.data) // high half of 254
	w.done(nil)

	w = ft.popWrite(t)
	assert.Equal(t, []byte{0b01111110}, w.data) // low half of 254
	w.done(nil)

	require.Equal(t, 1, res.calls)
	assert.NoError(t, res.err)
	assert.Equal(t, byte(254), d.MeasurementTime())
	ft.idle(t)
}

func TestDevice_SetMeasurementTime_Range(t *testing.T) {
	tests := []struct {
		value byte
		ok    bool
	}{
		{30, false},
		{31, true},
		{254, true},
		{255, false},
	}
	for _, tt := range tests {
		d, ft := newTestDevice(t, AddrLow)
		initDevice(t, d, ft)
		err := d.SetMeasurementTime(tt.value, nil)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidArgument, "value %d", tt.value)
			ft.idle(t)
			continue
		}
		require.NoError(t, err, "value %d", tt.value)
		ft.popWrite(t).done(nil)
		ft.popWrite(t).done(nil)
		assert.Equal(t, tt.value, d.MeasurementTime())
	}
}

func TestDevice_SetMeasurementTime_RejectedWhileContinuous(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	var res result
	require.NoError(t, d.StartContinuous(ModeHighRes, res.complete))
	ft.popWrite(t).done(nil)

	assert.ErrorIs(t, d.SetMeasurementTime(100, nil), ErrInvalidUsage)
	ft.idle(t)
}

func TestDevice_SetMeasurementTime_PartialShadow(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	// high half of 254 is acknowledged, low half is not
	var res result
	require.NoError(t, d.SetMeasurementTime(254, res.complete))
	ft.popWrite(t).done(nil)
	ft.popWrite(t).done(errors.New("no ack"))

	require.Equal(t, 1, res.calls)
	assert.ErrorIs(t, res.err, ErrIO)
	assert.Equal(t, byte(0b11100101), d.MeasurementTime(),
		"shadow keeps the committed high half over the old low half")

	// conversions follow the shadow, mixed or not
	var lux uint32
	require.NoError(t, d.ReadOneTime(ModeHighRes, &lux, res.complete))
	ft.popWrite(t).done(nil)
	tm := ft.popTimer(t)
	assert.Equal(t, 598*time.Millisecond, tm.d) // ceil(180*229/69)
	tm.done()
	r := ft.popRead(t)
	copy(r.buffer, []byte{0x83, 0x90})
	r.done(nil)
	assert.Equal(t, uint32(8457), lux) // round(33680/1.2*69/229)

	// a full rewrite recovers
	setTime(t, d, ft, DefaultMeasurementTime)
	assert.Equal(t, DefaultMeasurementTime, d.MeasurementTime())
}

func TestDevice_SetMeasurementTime_AffectsConversion(t *testing.T) {
	tests := []struct {
		measTime byte
		want     uint32
	}{
		{138, 14033},
		{254, 7624},
		{31, 62471},
	}
	for _, tt := range tests {
		d, ft := newTestDevice(t, AddrLow)
		initDevice(t, d, ft)
		setTime(t, d, ft, tt.measTime)

		var res result
		require.NoError(t, d.StartContinuous(ModeHighRes, res.complete))
		ft.popWrite(t).done(nil)

		var lux uint32
		require.NoError(t, d.ReadContinuous(&lux, res.complete))
		r := ft.popRead(t)
		copy(r.buffer, []byte{0x83, 0x90})
		r.done(nil)
		assert.Equal(t, tt.want, lux, "measurement time %d", tt.measTime)
	}
}

func TestDevice_Destroy(t *testing.T) {
	t.Run("never initialized", func(t *testing.T) {
		d, _ := newTestDevice(t, AddrLow)
		assert.NoError(t, d.Destroy(nil))
	})

	t.Run("returns memory through free", func(t *testing.T) {
		d, ft := newTestDevice(t, AddrLow)
		initDevice(t, d, ft)
		var freed *Device
		require.NoError(t, d.Destroy(func(p *Device) { freed = p }))
		assert.Same(t, d, freed)
	})

	t.Run("rejected while busy", func(t *testing.T) {
		d, ft := newTestDevice(t, AddrLow)
		var res result
		require.NoError(t, d.Init(res.complete))
		assert.ErrorIs(t, d.Destroy(nil), ErrBusy)

		ft.popWrite(t).done(errors.New("no ack"))
		require.Equal(t, 1, res.calls)
		assert.NoError(t, d.Destroy(nil))
	})
}

func TestDevice_SequenceStartedFromCompletion(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	// the busy flag must already be down inside the completion callback
	var second result
	var first result
	require.NoError(t, d.PowerDown(func(err error) {
		first.complete(err)
		assert.NoError(t, d.PowerOn(second.complete))
	}))

	w := ft.popWrite(t)
	assert.Equal(t, []byte{0b00000000}, w.data)
	w.done(nil)

	require.Equal(t, 1, first.calls)
	assert.NoError(t, first.err)

	w = ft.popWrite(t)
	assert.Equal(t, []byte{0b00000001}, w.data)
	w.done(nil)

	require.Equal(t, 1, second.calls)
	assert.NoError(t, second.err)
	ft.idle(t)
}

func TestDevice_NilCompletionCallback(t *testing.T) {
	d, ft := newTestDevice(t, AddrLow)
	initDevice(t, d, ft)

	require.NoError(t, d.PowerOn(nil))
	ft.popWrite(t).done(nil)

	// the sequence still ran to completion and released the instance
	require.NoError(t, d.PowerDown(nil))
	ft.popWrite(t).done(nil)
	ft.idle(t)
}
