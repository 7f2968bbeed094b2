package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/denis-koshenkov/rohm-bh1750fvi/adapter"
	"github.com/denis-koshenkov/rohm-bh1750fvi/cmd/bh1750/console"
)

var adapterCmd = cli.Command{
	Name:  "adapter",
	Usage: "MCP2221 adapter diagnostics",
	Subcommands: []*cli.Command{
		&adapterStatusCmd,
		&adapterReleaseCmd,
	},
}

var adapterStatusCmd = cli.Command{
	Name: "status",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	},
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(os.Stdout)
		if err := enc.Encode(status); err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var adapterReleaseCmd = cli.Command{
	Name: "release",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	},
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(os.Stdout)
		if err := enc.Encode(status); err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}
