package bh1750fvi

import (
	"encoding/binary"
	"fmt"
)

// StartContinuous puts the sensor into continuous measurement in the given
// mode. On success ReadContinuous becomes legal. On an I/O failure the
// driver forgets any previously active continuous mode: all it knows is that
// the last start attempt was not acknowledged.
func (d *Device) StartContinuous(mode Mode, complete CompleteFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	op, err := continuousOp(mode)
	if err != nil {
		return err
	}
	if !d.initialized {
		return fmt.Errorf("not initialized: %w", ErrInvalidUsage)
	}
	d.begin(complete)
	d.mode = mode
	d.command(op, func(err error) {
		d.continuous = err == nil
		d.finish(err)
	})
	return nil
}

// ReadContinuous fetches the latest continuous-mode sample and stores the
// converted lux value into out. The conversion uses the mode recorded when
// the measurement was started and the current measurement-time shadow. On
// failure out is untouched.
func (d *Device) ReadContinuous(out *uint32, complete CompleteFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	if out == nil {
		return fmt.Errorf("nil result destination: %w", ErrInvalidArgument)
	}
	if !d.initialized {
		return fmt.Errorf("not initialized: %w", ErrInvalidUsage)
	}
	if !d.continuous {
		return fmt.Errorf("continuous mode not active: %w", ErrInvalidUsage)
	}
	d.begin(complete)
	d.out = out
	d.readResult(d.finish)
	return nil
}

// ReadOneTime runs a single measurement: start the one-shot conversion, wait
// out the measurement window on the timer, read the result and store the
// converted lux value into out. The sensor powers itself down afterwards.
func (d *Device) ReadOneTime(mode Mode, out *uint32, complete CompleteFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	op, err := oneTimeOp(mode)
	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("nil result destination: %w", ErrInvalidArgument)
	}
	if !d.initialized {
		return fmt.Errorf("not initialized: %w", ErrInvalidUsage)
	}
	d.begin(complete)
	d.mode = mode
	d.out = out
	d.command(op, func(err error) {
		if err != nil {
			d.finish(err)
			return
		}
		d.timer.Start(measurementWindow(mode, d.measTime), func() {
			d.readResult(d.finish)
		})
	})
	return nil
}

// SetMeasurementTime programs the sensor's measurement-time register and
// tracks it in the shadow, half by half. Rejected while continuous mode is
// active; the register must not change under a running measurement.
func (d *Device) SetMeasurementTime(value byte, complete CompleteFunc) error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidArgument)
	}
	if d.busy {
		return ErrBusy
	}
	if value < MinMeasurementTime || value > MaxMeasurementTime {
		return fmt.Errorf("measurement time %d outside [%d, %d]: %w",
			value, MinMeasurementTime, MaxMeasurementTime, ErrInvalidArgument)
	}
	if !d.initialized {
		return fmt.Errorf("not initialized: %w", ErrInvalidUsage)
	}
	if d.continuous {
		return fmt.Errorf("continuous mode active: %w", ErrInvalidUsage)
	}
	d.begin(complete)
	d.setTimeHalves(value, d.finish)
	return nil
}

// MeasurementTime returns the driver's shadow of the sensor's
// measurement-time register. After a failed two-part write the shadow holds
// the mix the sensor actually acknowledged.
func (d *Device) MeasurementTime() byte {
	return d.measTime
}

// readResult fetches the two-byte data register and converts it.
func (d *Device) readResult(done func(error)) {
	d.reader.Read(d.addr, d.buf[:2], func(err error) {
		if err != nil {
			done(ioError(err))
			return
		}
		lux, err := convert(binary.BigEndian.Uint16(d.buf[:2]), d.mode, d.measTime)
		if err != nil {
			done(err)
			return
		}
		*d.out = lux
		done(nil)
	})
}

func continuousOp(mode Mode) (byte, error) {
	switch mode {
	case ModeHighRes:
		return opContinuousHighRes, nil
	case ModeHighRes2:
		return opContinuousHighRes2, nil
	case ModeLowRes:
		return opContinuousLowRes, nil
	}
	return 0, fmt.Errorf("unknown measurement mode %d: %w", mode, ErrInvalidArgument)
}

func oneTimeOp(mode Mode) (byte, error) {
	switch mode {
	case ModeHighRes:
		return opOneTimeHighRes, nil
	case ModeHighRes2:
		return opOneTimeHighRes2, nil
	case ModeLowRes:
		return opOneTimeLowRes, nil
	}
	return 0, fmt.Errorf("unknown measurement mode %d: %w", mode, ErrInvalidArgument)
}
