// Package jsontime provides time types with compact JSON encodings.
package jsontime

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Unix is a time encoded as Unix seconds. A JSON null or 0 decodes to the
// zero time, so IsZero tells whether the field was set.
type Unix time.Time

// Time returns the underlying time.Time value.
func (u Unix) Time() time.Time {
	return time.Time(u)
}

// IsZero reports whether u is unset.
func (u Unix) IsZero() bool {
	return time.Time(u).IsZero()
}

// UnmarshalJSON accepts integer or fractional seconds.
func (u *Unix) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*u = Unix{}
		return nil
	}
	var sec float64
	if err := json.Unmarshal(b, &sec); err != nil {
		return err
	}
	if sec == 0 {
		*u = Unix{}
		return nil
	}
	whole, frac := math.Modf(sec)
	*u = Unix(time.Unix(int64(whole), int64(frac*1e9)))
	return nil
}

// MarshalJSON writes whole seconds, or 0 for the zero time.
func (u Unix) MarshalJSON() ([]byte, error) {
	if u.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(time.Time(u).Unix())
}

func (u Unix) String() string {
	return time.Time(u).String()
}
