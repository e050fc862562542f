package sqladapter

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect selects placeholder syntax. Values match database/sql driver names.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "pgx"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case SQLite, Postgres, MySQL:
		return d, nil
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}
