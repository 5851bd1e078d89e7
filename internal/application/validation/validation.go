// Package validation turns decoded request payloads into typed domain values
// or a list of field errors. Nothing here touches storage.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taskmaster/tracker/internal/domain/entities"
)

// FieldError describes one rejected field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned for any payload that fails validation
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// First returns the first message, used as the envelope message.
func (e *Errors) First() string {
	if len(e.Fields) == 0 {
		return "Validation failed"
	}
	return e.Fields[0].Message
}

func (e *Errors) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *Errors) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

var messages = map[string]string{
	"title.required":    "Title is required",
	"title.max":         "Title must be at most 200 characters",
	"description.max":   "Description must be at most 1000 characters",
	"status.oneof":      "Status must be one of pending, in-progress, completed",
	"priority.oneof":    "Priority must be one of low, medium, high",
	"dueDate.iso":       "Due date must be a valid ISO 8601 date",
	"name.required":     "Name is required",
	"name.min":          "Name must be at least 2 characters",
	"name.max":          "Name must be at most 50 characters",
	"email.required":    "Email is required",
	"email.email":       "Please provide a valid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"update.min":        "At least one field must be provided for update",
}

func message(field, tag string) string {
	if msg, ok := messages[field+"."+tag]; ok {
		return msg
	}
	return field + " is invalid"
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates a struct carrying `validate` tags and converts failures
// into *Errors.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Errors{}
	for _, fe := range verrs {
		out.add(fe.Field(), message(fe.Field(), fe.Tag()))
	}
	return out
}

// Validator adapts Struct to echo's Validator interface
type Validator struct{}

// Validate validates structs
func (Validator) Validate(i interface{}) error {
	return Struct(i)
}

// DateField is a JSON date that remembers whether it was present and
// whether it was explicitly null.
type DateField struct {
	Set  bool
	Null bool
	Raw  string
}

// UnmarshalJSON implements json.Unmarshaler
func (d *DateField) UnmarshalJSON(b []byte) error {
	d.Set = true
	if string(b) == "null" {
		d.Null = true
		return nil
	}
	return json.Unmarshal(b, &d.Raw)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts an ISO 8601 date or date-time. Values without a zone
// are taken as UTC.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// TaskPayload is the decoded body of a task create or update request
type TaskPayload struct {
	Title       *string   `json:"title" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	Status      *string   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    *string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     DateField `json:"dueDate" validate:"-"`
}

// checkFields runs the per-field rules shared by create and update and
// returns the parsed due date, if any.
func (p TaskPayload) checkFields(errs *Errors) *time.Time {
	if p.Title != nil && *p.Title == "" {
		errs.add("title", message("title", "required"))
	}

	if err := Struct(p); err != nil {
		var verrs *Errors
		if errors.As(err, &verrs) {
			errs.Fields = append(errs.Fields, verrs.Fields...)
		}
	}

	if p.DueDate.Set && !p.DueDate.Null {
		due, ok := ParseDate(p.DueDate.Raw)
		if !ok {
			errs.add("dueDate", message("dueDate", "iso"))
			return nil
		}
		return &due
	}
	return nil
}

// CreateTask validates a create payload.
func CreateTask(p TaskPayload) (entities.TaskInput, error) {
	errs := &Errors{}

	if p.Title == nil {
		errs.add("title", message("title", "required"))
	}
	due := p.checkFields(errs)
	if err := errs.orNil(); err != nil {
		return entities.TaskInput{}, err
	}

	in := entities.TaskInput{
		Title:   *p.Title,
		DueDate: due,
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Status != nil {
		in.Status = entities.TaskStatus(*p.Status)
	}
	if p.Priority != nil {
		in.Priority = entities.Priority(*p.Priority)
	}
	return in.WithDefaults(), nil
}

// UpdateTask validates a partial update payload. At least one field must
// be present.
func UpdateTask(p TaskPayload) (entities.TaskPatch, error) {
	errs := &Errors{}

	due := p.checkFields(errs)
	if err := errs.orNil(); err != nil {
		return entities.TaskPatch{}, err
	}

	patch := entities.TaskPatch{
		Title:        p.Title,
		Description:  p.Description,
		DueDate:      due,
		ClearDueDate: p.DueDate.Set && p.DueDate.Null,
	}
	if p.Status != nil {
		status := entities.TaskStatus(*p.Status)
		patch.Status = &status
	}
	if p.Priority != nil {
		priority := entities.Priority(*p.Priority)
		patch.Priority = &priority
	}

	if patch.IsEmpty() {
		errs.add("", message("update", "min"))
		return entities.TaskPatch{}, errs
	}
	return patch, nil
}
