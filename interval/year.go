package interval

import (
	"database/sql/driver"
	"strconv"

	"github.com/werelate/dqa/errors"
)

// Year is an optional calendar year. The zero value is unset.
type Year struct {
	N   int
	Set bool
}

// YearOf returns a set Year.
func YearOf(v int) Year {
	return Year{N: v, Set: true}
}

// Add shifts a set year by delta. Unset years stay unset.
func (y Year) Add(delta int) Year {
	if !y.Set {
		return y
	}
	return YearOf(y.N + delta)
}

// String renders the year, or "null" when unset.
func (y Year) String() string {
	if !y.Set {
		return "null"
	}
	return strconv.Itoa(y.N)
}

// Scan implements sql.Scanner.
func (y *Year) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*y = Year{}
	case int64:
		*y = YearOf(int(v))
	case int32:
		*y = YearOf(int(v))
	case int:
		*y = YearOf(v)
	case []byte:
		return y.scanString(string(v))
	case string:
		return y.scanString(v)
	default:
		return errors.Newf("cannot scan %T into interval.Year", src)
	}
	return nil
}

func (y *Year) scanString(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "scan year %q", s)
	}
	*y = YearOf(n)
	return nil
}

// Value implements driver.Valuer. Unset years are stored as NULL.
func (y Year) Value() (driver.Value, error) {
	if !y.Set {
		return nil, nil
	}
	return int64(y.N), nil
}
