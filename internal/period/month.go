// Package period provides the YYYY-MM billing month token used across the
// engine. Months are stored as text; the lexical order of the token matches
// chronological order, which the reading and bill lookups rely on.
package period

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidMonth = errors.New("invalid_month")

// Month is a calendar month in UTC.
type Month struct {
	year  int
	month time.Month
}

// Parse parses a strict YYYY-MM token.
func Parse(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil || len(s) != 7 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{year: t.Year(), month: t.Month()}, nil
}

// FromTime returns the month containing t, evaluated in UTC.
func FromTime(t time.Time) Month {
	t = t.UTC()
	return Month{year: t.Year(), month: t.Month()}
}

func (m Month) IsZero() bool {
	return m.year == 0
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.year, int(m.month))
}

func (m Month) Prev() Month {
	return FromTime(m.Start().AddDate(0, -1, 0))
}

func (m Month) Next() Month {
	return FromTime(m.Start().AddDate(0, 1, 0))
}

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

func (m Month) Before(o Month) bool {
	return m.Start().Before(o.Start())
}

func (m Month) Equal(o Month) bool {
	return m.year == o.year && m.month == o.month
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(m.Start()) && t.Before(m.End())
}

func (m Month) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}
	return m.String(), nil
}

func (m *Month) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*m = Month{}
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case time.Time:
		*m = FromTime(v)
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidMonth, value)
	}
}

func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Month) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return ErrInvalidMonth
	}
	parsed, err := Parse(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// GormDataType tells gorm to store months as text.
func (Month) GormDataType() string {
	return "text"
}
