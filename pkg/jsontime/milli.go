package jsontime

import (
	"bytes"
	"encoding/json"
	"time"
)

// Milli is a time encoded as Unix milliseconds. The zero time encodes as
// null.
type Milli time.Time

// Time returns the underlying time.Time value.
func (m Milli) Time() time.Time {
	return time.Time(m)
}

// IsZero reports whether m is unset.
func (m Milli) IsZero() bool {
	return time.Time(m).IsZero()
}

func (m Milli) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Time(m).UnixMilli())
}

func (m *Milli) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = Milli{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*m = Milli(time.UnixMilli(ms))
	return nil
}
