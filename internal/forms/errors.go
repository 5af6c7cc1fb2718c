// Package forms binds the admin and auth HTML forms to backend payloads and
// carries their per-field error state between submit attempts.
package forms

import (
	"maps"

	"github.com/dukerupert/smartshop/internal/errors"
)

// GeneralKey holds errors that belong to no single field.
const GeneralKey = "general"

// FieldErrors maps a form field to its messages. Only the first message of
// a field is shown.
type FieldErrors map[string][]string

// FromError turns a submit failure into field errors. Failures without
// field detail land under GeneralKey.
func FromError(err error) FieldErrors {
	fe := FieldErrors{}
	if err == nil {
		return fe
	}
	if fields := errors.FieldErrors(err); len(fields) > 0 {
		maps.Copy(fe, fields)
		return fe
	}
	fe.Add(GeneralKey, errors.Message(err))
	return fe
}

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// First returns the message shown next to field.
func (f FieldErrors) First(field string) string {
	if msgs := f[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (f FieldErrors) Has(field string) bool {
	return len(f[field]) > 0
}

// Clear empties f before a new submit attempt.
func (f FieldErrors) Clear() {
	clear(f)
}

func (f FieldErrors) General() string {
	return f.First(GeneralKey)
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err converts f back into a validation error, nil when empty.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return errors.Validation("Verifique os campos destacados.", maps.Clone(map[string][]string(f)))
}

// merge adds field-level messages to a validator result.
func merge(err error, extra FieldErrors) error {
	if err != nil && !errors.Is(err, errors.ErrValidation) {
		return err
	}
	all := FromError(err)
	for k, msgs := range extra {
		for _, m := range msgs {
			all.Add(k, m)
		}
	}
	return all.Err()
}
