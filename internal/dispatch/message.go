package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pushrelay/internal/push"
)

const (
	DefaultTitle = "E-Baladya Notification"
	DefaultBody  = "You have a new notification"
	DefaultType  = "general"

	// TimestampLayout is ISO-8601 with microseconds and the local offset.
	TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

	userChannelPrefix = "user_"
)

// Fields marks Request fields the caller supplied explicitly.
type Fields uint8

const (
	FieldTitle Fields = 1 << iota
	FieldBody
	FieldType
)

// Request carries the optional content of a notification. Empty fields take
// defaults unless they are marked in Present.
type Request struct {
	Title string
	Body  string
	Type  string
	// Extra is merged over the base data fields; values are coerced to strings.
	Extra   map[string]any
	Present Fields
}

func (r Request) withDefaults() Request {
	if r.Title == "" && r.Present&FieldTitle == 0 {
		r.Title = DefaultTitle
	}
	if r.Body == "" && r.Present&FieldBody == 0 {
		r.Body = DefaultBody
	}
	if r.Type == "" && r.Present&FieldType == 0 {
		r.Type = DefaultType
	}
	return r
}

// UserChannel is the topic that addresses a single user's devices.
func UserChannel(id ID) string { return userChannelPrefix + id.String() }

// BuildMessage assembles the outbound message for destination.
// A non-zero user adds data.user_id. Extra fields overwrite base fields of the same key.
func BuildMessage(destination string, user ID, req Request, now time.Time) push.Message {
	req = req.withDefaults()

	data := map[string]string{
		"type":      req.Type,
		"timestamp": now.Format(TimestampLayout),
		"message":   req.Body,
	}
	if !user.IsZero() {
		data["user_id"] = user.String()
	}
	for k, v := range req.Extra {
		data[k] = Stringify(v)
	}

	return push.Message{
		Topic: destination,
		Title: req.Title,
		Body:  req.Body,
		Data:  data,
	}
}

// Stringify coerces a decoded JSON value to the flat string form the provider accepts.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case fmt.Stringer:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return strings.TrimSpace(string(b))
	}
}
