package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	app := cli.NewApp()
	app.Name = "vicere"
	app.Usage = "Log in to Vicere and inspect your points"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    flagVerbose,
			Aliases: []string{"v"},
			Usage:   "Log backend calls to stderr",
		},
		&cli.StringFlag{
			Name:  flagMigrations,
			Usage: "Migrations directory used when STORE_ADAPTER=postgres",
			Value: "./migrations",
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:      "login",
			Usage:     "Log in to Vicere",
			ArgsUsage: "EMAIL_OR_LOGIN",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
					EnvVars: []string{"VICERE_PASSWORD"},
				},
			},
			Action: login,
		},
		{
			Name:   "logout",
			Usage:  "Log out of Vicere",
			Action: logout,
		},
		{
			Name:  "whoami",
			Usage: "Show the logged in user and session",
			Flags: []cli.Flag{
				cliFlagOutput,
			},
			Action: whoami,
		},
		{
			Name:  "refresh",
			Usage: "Re-read profile and points from WooCommerce",
			Flags: []cli.Flag{
				cliFlagOutput,
			},
			Action: refresh,
		},
		{
			Name:  "cpf",
			Usage: "Work with CPF numbers",
			Subcommands: []*cli.Command{
				{
					Name:      "format",
					Usage:     "Format a CPF as 000.000.000-00",
					ArgsUsage: "CPF",
					Action:    cpfFormat,
				},
				{
					Name:      "validate",
					Usage:     "Check the CPF checksum digits",
					ArgsUsage: "CPF",
					Action:    cpfValidate,
				},
				{
					Name:      "check",
					Usage:     "Ask the backend whether the CPF is already registered",
					ArgsUsage: "CPF",
					Action:    cpfCheck,
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\n%s\n\n", err)
		stop()
		os.Exit(1)
	}
}
