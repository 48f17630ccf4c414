package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/vicere/internal/session"
)

func refresh(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("refresh requires no arguments")
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
		return errors.New("not logged in; please use `vicere login` to continue")
	}
	user, err := e.manager.RefreshUserData(c.Context)
	if err != nil {
		return errors.Wrap(err, "error refreshing user data")
	}
	rec, _ := e.manager.Session()

	return printUser(output, whoamiOutput{
		User:      user,
		LoggedIn:  rec.CreatedAt(),
		ExpiresAt: rec.CreatedAt().Add(session.MaxAge),
	})
}
