package params

import (
	"fmt"
	"strings"
)

// FieldError ties a validation failure to the input field it came from.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationError 입력 검증 실패 목록
// ⭐ 첫 번째 오류에서 멈추지 않고 모든 위반을 한 번에 수집
type ValidationError struct {
	Problems []FieldError `json:"problems"`
}

// Add records a problem for field. nil errors are ignored.
func (v *ValidationError) Add(field string, err error) {
	if err == nil {
		return
	}
	v.Problems = append(v.Problems, FieldError{Field: field, Err: err})
}

// Addf records a formatted problem for field.
func (v *ValidationError) Addf(field, format string, args ...interface{}) {
	v.Add(field, fmt.Errorf(format, args...))
}

// Err returns v as an error when problems were recorded, nil otherwise.
func (v *ValidationError) Err() error {
	if v == nil || len(v.Problems) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	msgs := make([]string, 0, len(v.Problems))
	for _, p := range v.Problems {
		msgs = append(msgs, p.Error())
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match any of the collected sentinel errors.
func (v *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(v.Problems))
	for _, p := range v.Problems {
		errs = append(errs, p)
	}
	return errs
}

// Messages returns the human-readable list, one line per violation.
func (v *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(v.Problems))
	for _, p := range v.Problems {
		msgs = append(msgs, p.Error())
	}
	return msgs
}
