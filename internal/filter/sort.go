package filter

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Direction is a normalized sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the raw sort directive supplied alongside the filter list.
type Sort struct {
	Attribute string
	Direction string // empty means ascending
}

// ParseDirection case-folds raw into a Direction. An empty string is Asc.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(cases.Fold().String(raw)) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q: must be asc or desc", raw)
	}
}
