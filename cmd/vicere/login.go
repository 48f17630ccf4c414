package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/vicere/internal/session"
)

func login(c *cli.Context) error {
	// Args
	if c.Args().Len() != 1 {
		return errors.New("login requires one argument-- a user email or login")
	}
	username := c.Args().First()

	// Command-specific flags
	password := c.String(flagPassword)
	if password == "" {
		var err error
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	e, err := getManager(c)
	if err != nil {
		return err
	}
	defer e.Close()

	auth, err := e.manager.Login(c.Context, username, password)
	switch {
	case errors.Is(err, session.ErrAuthFailed):
		return errors.Wrap(err, "check your credentials and try again")
	case errors.Is(err, session.ErrTransport):
		return errors.Wrap(err, "could not reach Vicere; try again later")
	case err != nil:
		return err
	}

	name := auth.User.FirstName
	if name == "" {
		name = auth.User.Email
	}
	fmt.Printf("Welcome, %s! You have %s points.\n", name, formatPoints(auth.User.Points.Balance))
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "error reading password")
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("a password is required")
	}
	return password, nil
}
