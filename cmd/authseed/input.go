package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal access, replaced in tests
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// promptPassword reads password without echo when stdin is a terminal
// Otherwise the first line of stdin is the password, so it may be piped
func promptPassword(stdin io.Reader, w io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && isTerminal(int(f.Fd())) {
		if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
			return "", err
		}
		pw, readErr := readPassword(int(f.Fd()))
		_, writeErr := fmt.Fprintln(w)
		if err := errors.Join(readErr, writeErr); err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", fmt.Errorf("can't read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
