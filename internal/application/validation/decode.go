package validation

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Decode reads one JSON object from r into v. An empty body decodes as an
// empty object. With strict set, keys that v does not declare are rejected.
func Decode(r io.Reader, v interface{}, strict bool) error {
	dec := json.NewDecoder(r)
	if strict {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	errs := &Errors{}
	if field, ok := unknownField(err); ok {
		errs.add(field, `"`+field+`" is not allowed`)
		return errs
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		errs.add(typeErr.Field, `"`+typeErr.Field+`" has an invalid type`)
		return errs
	}

	errs.add("", "Invalid request body")
	return errs
}

// unknownField extracts the key from encoding/json's unknown field error,
// which has no exported type.
func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}
