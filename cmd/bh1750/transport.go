package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
	"github.com/denis-koshenkov/rohm-bh1750fvi/adapter"
	"github.com/denis-koshenkov/rohm-bh1750fvi/cmd/bh1750/console"
	"github.com/denis-koshenkov/rohm-bh1750fvi/dispatch"
	"github.com/denis-koshenkov/rohm-bh1750fvi/i2c"
	"github.com/denis-koshenkov/rohm-bh1750fvi/sim"
)

// deviceFlags are the transport selection flags shared by every command that
// talks to a sensor.
func deviceFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   "mcp2221",
			Usage:   "bus adapter: mcp2221, generic, nanopi or sim",
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Value:   "/dev/i2c-1",
			Usage:   "i2c device for the generic adapter",
		},
		&cli.IntFlag{
			Name:  "bus",
			Value: -1,
			Usage: "i2c bus number for the nanopi adapter (-1 for the platform default)",
		},
		&cli.StringFlag{
			Name:  "addr",
			Value: "l",
			Usage: "ADDR pin level: l or h",
		},
		&cli.Float64Flag{
			Name:  "light",
			Value: 320,
			Usage: "ambient level in lux for the sim adapter",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML file with flag defaults",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
		},
	}
	return append(flags, extra...)
}

// session owns a dispatch loop, an initialized driver instance and the bus
// teardown hooks for one CLI invocation.
type session struct {
	loop    *dispatch.Loop
	dev     *bh1750fvi.Device
	closers []func()
}

// openSession builds the transport selected by the flags, creates the driver
// and runs its initialization sequence.
func openSession(c *cli.Context) (*session, error) {
	fc, err := loadFileConfig(c.String("config"))
	if err != nil {
		return nil, console.Exit(1, "config error: %s", console.Red(err))
	}
	verbose := c.Bool("verbose")
	if verbose {
		console.Trace = true
	}
	ctx := console.SetVerbose(context.Background(), verbose)

	addr := bh1750fvi.AddrLow
	if stringSetting(c, "addr", fc.Addr) == "h" {
		addr = bh1750fvi.AddrHigh
	}

	s := &session{loop: dispatch.New()}
	name := stringSetting(c, "adapter", fc.Adapter)
	var transport bh1750fvi.Transport
	switch name {
	case "mcp2221":
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			s.loop.Stop()
			return nil, console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		transport = i2c.NewAsyncBus(ctx, a, s.loop)
	case "generic":
		bus, err := i2c.NewGenericBus(stringSetting(c, "device", fc.Device))
		if err != nil {
			s.loop.Stop()
			return nil, console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		s.closers = append(s.closers, func() {
			if err := bus.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		})
		transport = i2c.NewAsyncBus(ctx, bus, s.loop)
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			s.loop.Stop()
			return nil, console.Exit(1, "adaptor connect error: %s", console.Red(err))
		}
		bus := i2c.NewGobotBus(npi, c.Int("bus"))
		s.closers = append(s.closers, func() {
			if err := bus.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
			if err := npi.I2cBusAdaptor.Finalize(); err != nil {
				console.Errorf("error finalizing adaptor: %s", console.Red(err))
			}
		})
		transport = i2c.NewAsyncBus(ctx, bus, s.loop)
	case "sim":
		sensor := sim.New(s.loop, addr)
		sensor.SetLight(float64Setting(c, "light", fc.Light))
		transport = sensor
	default:
		s.loop.Stop()
		return nil, console.Exit(1, "unknown adapter %s", console.Red(name))
	}

	dev, err := bh1750fvi.Create(bh1750fvi.NewConfig(transport, addr))
	if err != nil {
		s.Close()
		return nil, console.Exit(1, "could not create driver instance: %s", console.Red(err))
	}
	s.dev = dev
	if err := s.await(dev.Init); err != nil {
		s.Close()
		return nil, console.Exit(1, "sensor initialization error: %s", console.Red(err))
	}
	return s, nil
}

// await drives one driver sequence to completion from synchronous code.
func (s *session) await(start func(bh1750fvi.CompleteFunc) error) error {
	return dispatch.Await(s.loop, func(done func(error)) error {
		return start(done)
	})
}

func (s *session) Close() {
	if s.dev != nil {
		s.loop.Do(func() {
			if err := s.dev.Destroy(nil); err != nil {
				console.Errorf("could not destroy driver instance: %s", console.Red(err))
			}
		})
	}
	s.loop.Stop()
	for _, closer := range s.closers {
		closer()
	}
}

func parseMode(value string) (bh1750fvi.Mode, error) {
	switch value {
	case "h", "high":
		return bh1750fvi.ModeHighRes, nil
	case "h2", "high2":
		return bh1750fvi.ModeHighRes2, nil
	case "l", "low":
		return bh1750fvi.ModeLowRes, nil
	}
	return 0, fmt.Errorf("unknown measurement mode %q (expected h, h2 or l)", value)
}
