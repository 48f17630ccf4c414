package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func logout(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("logout requires no arguments")
	}

	e, err := getManager(c)
	if err != nil {
		return err
	}
	defer e.Close()

	// The in-memory session is gone either way; a storage error only means
	// the record may still be on disk.
	if err := e.manager.Logout(c.Context); err != nil {
		return errors.Wrap(err, "logged out, but the stored session could not be deleted")
	}

	fmt.Println("Logout was successful.")
	return nil
}
