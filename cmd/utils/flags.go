package utils

import "github.com/urfave/cli/v2"

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.json",
		Usage:   "load configuration from `file`",
	}
	EnvFileFlag = &cli.StringFlag{
		Name:  "env",
		Value: ".env",
		Usage: "load credentials from dotenv `file`",
	}
	DryRunFlag = &cli.BoolFlag{
		Name:  "dry",
		Usage: "trade on the in-memory paper broker",
	}

	StartTimeFlag = &cli.StringFlag{
		Name:    "start",
		Aliases: []string{"s"},
		Value:   "",
		Usage:   "start `time`",
	}
	EndTimeFlag = &cli.StringFlag{
		Name:    "end",
		Aliases: []string{"e"},
		Value:   "",
		Usage:   "end `time`",
	}
	CsvFlag = &cli.StringFlag{
		Name:  "csv",
		Value: "history.csv",
		Usage: "write trades to csv `file`",
	}
)
