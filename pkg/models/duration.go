package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Millis is a duration that encodes as whole milliseconds in JSON and YAML
// reports.
type Millis time.Duration

// Duration returns m as a time.Duration.
func (m Millis) Duration() time.Duration { return time.Duration(m) }

// Milliseconds returns m as an integer millisecond count.
func (m Millis) Milliseconds() int64 { return time.Duration(m).Milliseconds() }

func (m Millis) String() string { return time.Duration(m).String() }

// MarshalJSON encodes m as an integer number of milliseconds.
func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.Milliseconds(), 10), nil
}

// UnmarshalJSON decodes a millisecond count. Fractional values are accepted.
func (m *Millis) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*m = fromMillis(ms)
	return nil
}

// MarshalYAML encodes m as an integer number of milliseconds.
func (m Millis) MarshalYAML() (any, error) {
	return m.Milliseconds(), nil
}

// UnmarshalYAML decodes a millisecond count. It uses the callback form so
// both YAML decoders in use accept it.
func (m *Millis) UnmarshalYAML(unmarshal func(any) error) error {
	var ms float64
	if err := unmarshal(&ms); err != nil {
		return err
	}
	*m = fromMillis(ms)
	return nil
}

func fromMillis(ms float64) Millis {
	return Millis(time.Duration(ms * float64(time.Millisecond)))
}
