package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a boolean that also accepts the usual operator spellings
// ("1", "yes", "on", ...) from environment variables and config files.
type Flag bool

func (f Flag) Bool() bool { return bool(f) }

// SetValue implements cleanenv.Setter.
func (f *Flag) SetValue(s string) error {
	b, err := ParseBool(s)
	if err != nil {
		return err
	}
	*f = Flag(b)
	return nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
		return nil
	case string:
		return f.SetValue(v)
	case float64:
		*f = v != 0
		return nil
	default:
		return fmt.Errorf("invalid boolean %s", string(b))
	}
}

// ParseBool parses boolean-ish strings, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "", "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
