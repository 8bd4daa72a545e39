package store

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/werelate/dqa/db"
	"github.com/werelate/dqa/errors"
)

// Dialect smooths over the placeholder and list syntax of the supported
// drivers. Queries are written with '?' placeholders and rebound per driver.
type Dialect struct {
	driver string
}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case db.DriverSQLite, db.DriverPostgres:
		return Dialect{driver: driver}, nil
	}
	return Dialect{}, errors.Newf("unsupported database driver %q", driver)
}

// Driver returns the driver name.
func (d Dialect) Driver() string {
	return d.driver
}

// Rebind converts '?' placeholders to the driver's form.
func (d Dialect) Rebind(query string) string {
	if d.driver != db.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// In returns a membership predicate for column and its arguments. Postgres
// binds the whole list as one array parameter.
func (d Dialect) In(column string, values []string) (string, []interface{}) {
	if len(values) == 0 {
		return "1 = 0", nil
	}
	if d.driver == db.DriverPostgres {
		return column + " = ANY(?)", []interface{}{pq.Array(values)}
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args
}

// Truncate returns a statement removing every row of table.
func (d Dialect) Truncate(table string) string {
	if d.driver == db.DriverPostgres {
		return "TRUNCATE " + table
	}
	return "DELETE FROM " + table
}
