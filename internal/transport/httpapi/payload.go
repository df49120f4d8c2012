package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pushrelay/internal/dispatch"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON body")

// content holds the optional fields shared by every notify endpoint.
// Absent fields take defaults; an explicit "" is sent as is.
type content struct {
	Title *string        `json:"title"`
	Body  *string        `json:"body"`
	Type  *string        `json:"type"`
	Data  map[string]any `json:"data"`
}

func (c content) request() dispatch.Request {
	req := dispatch.Request{Extra: c.Data}
	if c.Title != nil {
		req.Title, req.Present = *c.Title, req.Present|dispatch.FieldTitle
	}
	if c.Body != nil {
		req.Body, req.Present = *c.Body, req.Present|dispatch.FieldBody
	}
	if c.Type != nil {
		req.Type, req.Present = *c.Type, req.Present|dispatch.FieldType
	}
	return req
}

type userPayload struct {
	UserID dispatch.ID `json:"user_id" validate:"required"`
	content
}

type usersPayload struct {
	UserIDs []dispatch.ID `json:"user_ids" validate:"required,min=1"`
	content
}

type topicPayload struct {
	Topic string `json:"topic" validate:"required"`
	content
}

// requiredMessages maps a payload field to its 400 message.
var requiredMessages = map[string]string{
	"user_id":  "user_id is required",
	"user_ids": "user_ids list is required",
	"topic":    "topic is required",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Falsy ids (null, 0, "", "  ", false) count as missing.
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		id, ok := f.Interface().(dispatch.ID)
		if !ok || id.IsZero() {
			return ""
		}
		return id.String()
	}, dispatch.ID{})
	return v
}

// decode reads a JSON body into dst. An empty body leaves dst zero.
func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errInvalidJSON
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// validationMessage turns the first failed rule into the client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		if msg, ok := requiredMessages[field]; ok {
			return msg
		}
		return field + " is invalid"
	}
	return err.Error()
}
