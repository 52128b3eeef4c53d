package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/xyths/fxbot/cmd/utils"
)

var app *cli.App

func init() {
	app = &cli.App{
		Name:    filepath.Base(os.Args[0]),
		Usage:   "the single-symbol forex trading robot",
		Version: "0.3.0",
		Action:  run,
	}

	app.Commands = []*cli.Command{
		runCommand,
		printCommand,
		closeCommand,
		sizeCommand,
		historyCommand,
	}
	app.Flags = []cli.Flag{
		utils.ConfigFlag,
		utils.EnvFileFlag,
		utils.DryRunFlag,
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
