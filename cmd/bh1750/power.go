package main

import (
	"github.com/urfave/cli/v2"

	"github.com/denis-koshenkov/rohm-bh1750fvi/cmd/bh1750/console"
)

var powerCmd = cli.Command{
	Name:  "power",
	Usage: "sensor power control",
	Subcommands: []*cli.Command{
		&powerOnCmd,
		&powerDownCmd,
	},
}

var powerOnCmd = cli.Command{
	Name:  "on",
	Flags: deviceFlags(),
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.await(s.dev.PowerOn); err != nil {
			return console.Exit(1, "power on error: %s", console.Red(err))
		}
		console.Printf("sensor powered on\n")
		return nil
	},
}

var powerDownCmd = cli.Command{
	Name: "down",
	Flags: deviceFlags(
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask for confirmation",
		},
	),
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("power down the sensor?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				return nil
			}
		}
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.await(s.dev.PowerDown); err != nil {
			return console.Exit(1, "power down error: %s", console.Red(err))
		}
		console.Printf("sensor powered down\n")
		return nil
	},
}

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "clear the sensor's data register",
	Flags: deviceFlags(),
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.await(s.dev.Reset); err != nil {
			return console.Exit(1, "reset error: %s", console.Red(err))
		}
		console.Printf("data register cleared\n")
		return nil
	},
}
