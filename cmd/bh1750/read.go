package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
	"github.com/denis-koshenkov/rohm-bh1750fvi/cmd/bh1750/console"
)

var readCmd = cli.Command{
	Name:  "read",
	Usage: "run a single one-shot measurement and print the result in lux",
	Flags: deviceFlags(
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Value:   "h",
			Usage:   "measurement mode: h, h2 or l",
		},
		&cli.UintFlag{
			Name:  "mt",
			Usage: "measurement time register value (31-254)",
		},
	),
	Action: func(c *cli.Context) error {
		fc, err := loadFileConfig(c.String("config"))
		if err != nil {
			return console.Exit(1, "config error: %s", console.Red(err))
		}
		mode, err := parseMode(stringSetting(c, "mode", fc.Mode))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		if c.IsSet("mt") {
			value := c.Uint("mt")
			if value > 255 {
				return console.Exit(1, "measurement time %s out of range", console.Red(strconv.FormatUint(uint64(value), 10)))
			}
			if err := s.await(func(done bh1750fvi.CompleteFunc) error {
				return s.dev.SetMeasurementTime(byte(value), done)
			}); err != nil {
				return console.Exit(1, "could not set measurement time: %s", console.Red(err))
			}
		}
		var lux uint32
		if err := s.await(func(done bh1750fvi.CompleteFunc) error {
			return s.dev.ReadOneTime(mode, &lux, done)
		}); err != nil {
			return console.Exit(1, "measurement error: %s", console.Red(err))
		}
		console.Printf("%s lux\n", console.White(lux))
		return nil
	},
}
