package dispatch

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID is a recipient identifier as the caller spelled it. A JSON number stays a
// number when echoed back; its string form addresses the user channel.
// Any other JSON value (null, bool, object, array) is kept verbatim so it can
// be echoed, but it does not address anyone.
type ID struct {
	text    string
	numeric bool
	raw     json.RawMessage
}

// StringID returns an ID that is echoed as a JSON string.
func StringID(s string) ID { return ID{text: s} }

// IsZero reports whether the id is absent or falsy: null, false, 0, an empty
// or blank string, or an empty object or array.
func (id ID) IsZero() bool {
	if id.raw != nil {
		switch string(id.raw) {
		case "null", "false", "{}", "[]":
			return true
		}
		return false
	}
	if id.numeric {
		return isNumericZero(id.text)
	}
	return strings.TrimSpace(id.text) == ""
}

// Addressable reports whether the id can name a user channel.
func (id ID) Addressable() bool { return id.raw == nil && !id.IsZero() }

func (id ID) String() string {
	if id.raw != nil {
		return string(id.raw)
	}
	return id.text
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id.raw != nil:
		return id.raw, nil
	case id.numeric:
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*id = ID{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID{text: s}
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = ID{text: n.String(), numeric: true}
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return err
	}
	*id = ID{raw: json.RawMessage(compact.Bytes())}
	return nil
}

func isNumericZero(s string) bool {
	mant, _, _ := strings.Cut(strings.ToLower(s), "e")
	mant = strings.TrimPrefix(mant, "-")
	return strings.Trim(mant, "0.") == ""
}
