package plan

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

// Equal reports whether both values name the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.Format(dateLayout) == other.Format(dateLayout)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON reports malformed dates as *json.UnmarshalTypeError so
// the decoder attaches the offending field path (e.g. "week_start",
// "dias.fecha") instead of a document-level failure.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(Date{})}
	}
	parsed, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return &json.UnmarshalTypeError{Value: "date " + string(data), Type: reflect.TypeOf(Date{})}
	}
	*d = parsed
	return nil
}
