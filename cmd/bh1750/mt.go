package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
	"github.com/denis-koshenkov/rohm-bh1750fvi/cmd/bh1750/console"
)

var mtCmd = cli.Command{
	Name:  "mt",
	Usage: "measurement time register control",
	Subcommands: []*cli.Command{
		&mtSetCmd,
	},
}

var mtSetCmd = cli.Command{
	Name:      "set",
	Usage:     "program the measurement time register (31-254, default 69)",
	ArgsUsage: "<value>",
	Flags:     deviceFlags(),
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected exactly one argument, the register value")
		}
		value, err := strconv.ParseUint(c.Args().First(), 10, 8)
		if err != nil {
			return console.Exit(1, "invalid register value: %s", console.Red(err))
		}
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.await(func(done bh1750fvi.CompleteFunc) error {
			return s.dev.SetMeasurementTime(byte(value), done)
		}); err != nil {
			return console.Exit(1, "could not set measurement time: %s", console.Red(err))
		}
		console.Printf("measurement time set to %s\n", console.White(s.dev.MeasurementTime()))
		return nil
	},
}
