package main

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/vicere/internal/cpf"
)

func cpfArg(c *cli.Context, cmd string) (string, error) {
	if c.Args().Len() != 1 {
		return "", errors.Errorf("cpf %s requires one argument-- a CPF", cmd)
	}
	return c.Args().First(), nil
}

func cpfFormat(c *cli.Context) error {
	doc, err := cpfArg(c, "format")
	if err != nil {
		return err
	}
	fmt.Println(cpf.Format(doc))
	return nil
}

func cpfValidate(c *cli.Context) error {
	doc, err := cpfArg(c, "validate")
	if err != nil {
		return err
	}
	if !cpf.Validate(doc) {
		return errors.Errorf("%s is not a valid CPF", cpf.Format(doc))
	}
	fmt.Printf("%s is valid.\n", cpf.Format(doc))
	return nil
}

// cpfCheck treats a failed lookup as "not registered", like the signup
// form does, and logs why.
func cpfCheck(c *cli.Context) error {
	doc, err := cpfArg(c, "check")
	if err != nil {
		return err
	}
	if !cpf.Validate(doc) {
		return errors.Errorf("%s is not a valid CPF", cpf.Format(doc))
	}

	e, err := getClient(c)
	if err != nil {
		return err
	}
	exists, err := e.client.CPFExists(c.Context, doc)
	if err != nil {
		e.log.Warn("cpf lookup failed", slog.Any("error", err))
		exists = false
	}
	if exists {
		fmt.Printf("%s is already registered.\n", cpf.Format(doc))
	} else {
		fmt.Printf("%s is not registered.\n", cpf.Format(doc))
	}
	return nil
}
