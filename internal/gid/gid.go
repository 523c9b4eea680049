// Package gid decodes GitLab global ids such as "gid://gitlab/Project/42".
package gid

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a global id without a numeric final segment.
type ParseError struct {
	ID string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse id from string %q", e.ID)
}

// Parse returns the numeric part after the last '/' of a global id.
// A string without any '/' is parsed as a whole.
func Parse(s string) (uint32, error) {
	part := s[strings.LastIndex(s, "/")+1:]
	id, err := strconv.ParseUint(part, 10, 32)
	if err != nil {
		return 0, &ParseError{ID: s}
	}
	return uint32(id), nil
}

// Format builds the global id of a record of the given kind.
func Format(kind string, id uint32) string {
	return fmt.Sprintf("gid://gitlab/%s/%d", kind, id)
}
