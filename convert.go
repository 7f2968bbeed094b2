package bh1750fvi

import (
	"fmt"
	"math"
	"time"
)

// The sensor reports 1.2 counts per lux at the default measurement time.
const countsPerLux = 1.2

// Measurement windows at the default measurement time, datasheet worst case.
const (
	highResWindowMs = 180
	lowResWindowMs  = 24
)

// convert turns a raw big-endian count into lux. Longer measurement times
// raise sensitivity, so the count is scaled back by 69/T; the half-lx mode
// packs twice the resolution into the same 16 bits. Low-res ignores the
// measurement time. Rounding is half away from zero.
func convert(raw uint16, mode Mode, measTime byte) (uint32, error) {
	lux := float64(raw) / countsPerLux
	switch mode {
	case ModeHighRes:
		lux *= float64(DefaultMeasurementTime) / float64(measTime)
	case ModeHighRes2:
		lux *= float64(DefaultMeasurementTime) / float64(measTime)
		lux /= 2
	case ModeLowRes:
	default:
		return 0, fmt.Errorf("unknown measurement mode %d in conversion: %w", mode, ErrDriver)
	}
	return uint32(math.Round(lux)), nil
}

// measurementWindow returns how long a one-shot conversion takes. The
// datasheet windows hold at the default measurement time and stretch
// proportionally with the register value; the result is rounded up so the
// driver never reads a conversion that is still running.
func measurementWindow(mode Mode, measTime byte) time.Duration {
	base := highResWindowMs
	if mode == ModeLowRes {
		base = lowResWindowMs
	}
	ms := (base*int(measTime) + int(DefaultMeasurementTime) - 1) / int(DefaultMeasurementTime)
	return time.Duration(ms) * time.Millisecond
}
