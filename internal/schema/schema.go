// Package schema holds the strict-validation primitives shared by the
// recipe and weekly plan models. Model output is only trusted after it
// has passed through Decode: anything unparseable, mistyped or out of
// range becomes a *Violation naming the offending field path.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Violation reports a single schema violation in a parsed JSON document.
type Violation struct {
	Path       string // field path, e.g. "ingredientes[2].cantidad"
	Constraint string // human description of the broken constraint
}

func (v *Violation) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", v.Path, v.Constraint)
}

// Violationf builds a Violation with a formatted constraint message.
func Violationf(path, format string, args ...any) *Violation {
	return &Violation{Path: path, Constraint: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether err is (or wraps) a schema violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// Validatable is implemented by model types that can check their own
// structural invariants after unmarshalling.
type Validatable interface {
	Validate() error
}

// Decode strictly parses data into v. Unknown fields are ignored for
// forward compatibility; syntax errors, type mismatches and failed
// model invariants all surface as *Violation.
func Decode(data []byte, v Validatable) error {
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			path := typeErr.Field
			if path == "" {
				path = "$"
			}
			return Violationf(path, "expected %s, got %s", typeErr.Type.String(), typeErr.Value)
		}
		var violation *Violation
		if errors.As(err, &violation) {
			return violation
		}
		return Violationf("$", "not valid JSON: %v", err)
	}
	return v.Validate()
}
