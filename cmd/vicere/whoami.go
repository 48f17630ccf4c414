package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/vicere/internal/session"
)

type whoamiOutput struct {
	User      session.User `json:"user"`
	LoggedIn  time.Time    `json:"logged_in"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func whoami(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("whoami requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	e, err := getManager(c)
	if err != nil {
		return err
	}
	defer e.Close()

	if !e.manager.RestoreSession(c.Context) {
		if e.manager.State() == session.StateExpired {
			fmt.Println("Your session expired. Please log in again.")
			return nil
		}
		fmt.Println("Not logged in.")
		return nil
	}
	auth, ok := e.manager.Identity().(session.Authenticated)
	if !ok {
		return errors.New("session restored without an authenticated identity")
	}
	rec, _ := e.manager.Session()

	return printUser(output, whoamiOutput{
		User:      auth.User,
		LoggedIn:  rec.CreatedAt(),
		ExpiresAt: rec.CreatedAt().Add(session.MaxAge),
	})
}

func printUser(output string, out whoamiOutput) error {
	switch strings.ToLower(output) {
	case "table":
		table := uitable.New()
		table.AddRow("ID", "EMAIL", "NAME", "POINTS", "VICOINS", "SESSION EXPIRES")
		expires := "-"
		if !out.ExpiresAt.IsZero() {
			expires = out.ExpiresAt.Local().Format(time.RFC822)
		}
		table.AddRow(
			out.User.ID,
			out.User.Email,
			strings.TrimSpace(out.User.FirstName+" "+out.User.LastName),
			formatPoints(out.User.Points.Balance),
			formatPoints(out.User.Points.Vicoins),
			expires,
		)
		fmt.Println(table)

	case "json":
		prettyJSON, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errors.Wrap(err, "error formatting output from whoami operation")
		}
		fmt.Println(string(prettyJSON))
	}
	return nil
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
