package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySegment reports a dot-path with an empty relation or attribute.
var ErrEmptySegment = errors.New("empty path segment")

// Path is a resolved dot-path.
type Path struct {
	Relations []string // relations to traverse, outermost first
	Attribute string   // terminal attribute
}

// ResolvePath splits a dot-path into its relation chain and attribute.
//
//	"name"                  -> [] name
//	"department.name"       -> [department] name
//	"company.department.id" -> [company department] id
//
// Any empty segment ("a..b", ".a", "a.") fails with ErrEmptySegment.
func ResolvePath(path string) (Path, error) {
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: %q at position %d", ErrEmptySegment, path, i)
		}
	}

	last := len(segments) - 1
	return Path{
		Relations: segments[:last],
		Attribute: segments[last],
	}, nil
}
