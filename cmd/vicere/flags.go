package main

import "github.com/urfave/cli/v2"

const (
	flagMigrations = "migrations"
	flagOutput     = "output"
	flagPassword   = "password"
	flagVerbose    = "verbose"
)

var (
	cliFlagOutput = &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "Return output in another format. Supported formats: table, json",
		Value:   "table",
	}
)
