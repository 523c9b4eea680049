package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotTerminal means the token cannot be prompted for.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// PromptToken asks for the token on in without echo. It fails with
// ErrNotTerminal when in is not a terminal.
func PromptToken(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}

	fmt.Fprint(out, "GitLab personal access token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
