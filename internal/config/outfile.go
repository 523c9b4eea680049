package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ErrOutFileExists is returned by PrepareOutFile when the file is present
// and force is off.
var ErrOutFileExists = errors.New("out file already exists")

// DefaultOutFile derives the database file name from the group name: ASCII
// is lower-cased, anything else becomes an underscore.
func DefaultOutFile(group string) string {
	var b strings.Builder
	for _, r := range group {
		if r > unicode.MaxASCII {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	b.WriteString(".sqlite")
	return b.String()
}

// PrepareOutFile makes sure nothing sits at path. An existing file is moved
// to path+"~" when force is set, otherwise ErrOutFileExists is returned.
func PrepareOutFile(path string, force bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check out file: %w", err)
	}

	if !force {
		return fmt.Errorf("%s: %w", path, ErrOutFileExists)
	}
	if err := os.Rename(path, path+"~"); err != nil {
		return fmt.Errorf("failed to move %s aside: %w", path, err)
	}
	return nil
}
