package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var errNoTerminal = errors.New("no terminal available for password prompt (use --password)")

// promptPassword reads a password from the terminal with echo disabled.
func promptPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}

	fmt.Fprint(prompt, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)

	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(password), nil
}
