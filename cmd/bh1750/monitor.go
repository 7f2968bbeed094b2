package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
	"github.com/denis-koshenkov/rohm-bh1750fvi/cmd/bh1750/console"
)

var monitorCmd = cli.Command{
	Name:  "monitor",
	Usage: "sample the sensor continuously until interrupted",
	Flags: deviceFlags(
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Value:   "h",
			Usage:   "measurement mode: h, h2 or l",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Value:   time.Second,
			Usage:   "delay between samples",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "number of samples to take (0 means until interrupted)",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "sqlite file to record samples into",
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
		interval := c.Duration("interval")
		if interval <= 0 {
			return console.Exit(1, "interval must be positive")
		}

		var store *Store
		if path := c.String("db"); path != "" {
			store, err = OpenStore(path)
			if err != nil {
				return console.Exit(1, "store error: %s", console.Red(err))
			}
			defer func() {
				if err := store.Close(); err != nil {
					console.Errorf("error closing store: %s", console.Red(err))
				}
			}()
			console.Infof("recording samples to %s as job %s", path, console.Green(store.JobID()))
		}

		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.await(func(done bh1750fvi.CompleteFunc) error {
			return s.dev.StartContinuous(mode, done)
		}); err != nil {
			return console.Exit(1, "could not start continuous mode: %s", console.Red(err))
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)

		count := c.Int("count")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// The first tick doubles as the settling window for the first
		// conversion.
	sampling:
		for taken := 0; count == 0 || taken < count; taken++ {
			select {
			case <-stop:
				console.Printf("\n%s\n", console.Yellow("interrupted"))
				break sampling
			case <-ticker.C:
			}
			var lux uint32
			if err := s.await(func(done bh1750fvi.CompleteFunc) error {
				return s.dev.ReadContinuous(&lux, done)
			}); err != nil {
				console.Errorf("measurement error: %s", console.Red(err))
				continue
			}
			console.Printf("%s %s lux\n", time.Now().Format(time.TimeOnly), console.White(lux))
			if store != nil {
				if err := store.Record(lux, mode); err != nil {
					console.Errorf("could not record sample: %s", console.Red(err))
				}
			}
		}

		if err := s.await(s.dev.PowerDown); err != nil {
			console.Errorf("could not power down the sensor: %s", console.Red(err))
		}
		return nil
	},
}
