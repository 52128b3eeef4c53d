package main

import (
	"log"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/xyths/fxbot/cmd/utils"
	"github.com/xyths/fxbot/trader"
)

// exitDailyClose tells the supervisor the robot stopped for the daily close and should be restarted.
const exitDailyClose = 42

var (
	runCommand = &cli.Command{
		Action: run,
		Name:   "run",
		Usage:  "Trade until the daily close",
	}
	printCommand = &cli.Command{
		Action: printInfo,
		Name:   "print",
		Usage:  "Print the symbol, the quote and open positions",
	}
	closeCommand = &cli.Command{
		Action: closeAll,
		Name:   "close",
		Usage:  "Close all open positions now",
	}
	sizeCommand = &cli.Command{
		Action: size,
		Name:   "size",
		Usage:  "Print the volume of the next position",
	}
	historyCommand = &cli.Command{
		Name:  "history",
		Usage: "Manage trading history",
		Subcommands: []*cli.Command{
			{
				Action: export,
				Name:   "export",
				Usage:  "Export trading history to csv",
				Flags: []cli.Flag{
					utils.StartTimeFlag,
					utils.EndTimeFlag,
					utils.CsvFlag,
				},
			},
		},
	}
)

func newTrader(ctx *cli.Context) (*trader.Trader, error) {
	cfg, err := trader.LoadConfig(ctx.String(utils.ConfigFlag.Name), ctx.String(utils.EnvFileFlag.Name))
	if err != nil {
		return nil, err
	}
	return trader.New(cfg, ctx.Bool(utils.DryRunFlag.Name))
}

func initTrader(ctx *cli.Context) (*trader.Trader, error) {
	t, err := newTrader(ctx)
	if err != nil {
		return nil, err
	}
	if err = t.Init(ctx.Context); err != nil {
		_ = t.Close(ctx.Context)
		return nil, err
	}
	return t, nil
}

func run(ctx *cli.Context) error {
	t, err := initTrader(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Close(ctx.Context)
	}()
	if err = t.Start(ctx.Context); errors.Is(err, trader.ErrDailyClose) {
		return cli.Exit(err.Error(), exitDailyClose)
	}
	return err
}

func printInfo(ctx *cli.Context) error {
	t, err := initTrader(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Close(ctx.Context)
	}()
	return t.Print(ctx.Context)
}

func closeAll(ctx *cli.Context) error {
	t, err := initTrader(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Close(ctx.Context)
	}()
	return t.Flatten(ctx.Context)
}

func size(ctx *cli.Context) error {
	t, err := initTrader(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Close(ctx.Context)
	}()
	v, err := t.Size()
	if err != nil {
		return err
	}
	log.Printf("volume: %v", v)
	return nil
}

func export(ctx *cli.Context) error {
	t, err := newTrader(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Close(ctx.Context)
	}()
	if err = t.InitStore(ctx.Context); err != nil {
		return err
	}
	start := ctx.String(utils.StartTimeFlag.Name)
	end := ctx.String(utils.EndTimeFlag.Name)
	csv := ctx.String(utils.CsvFlag.Name)
	return t.Export(ctx.Context, start, end, csv)
}
