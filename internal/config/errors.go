package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// Validation error codes.
const (
	ErrCodeParse     = "C001" // file is not valid YAML or CUE
	ErrCodeSchema    = "C002" // schema constraint violated
	ErrCodeDuplicate = "C003" // duplicate id
	ErrCodeReference = "C004" // reference to an unknown id
	ErrCodeWindow    = "C005" // empty or inverted time window
	ErrCodeModel     = "C006" // model or negotiation parameters inconsistent
)

// ValidationError is one problem found in a fleet file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Errors is every problem found, in discovery order.
type Errors []ValidationError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// fromCUE converts CUE errors, keeping the path and first position.
func fromCUE(code string, err error) Errors {
	var out Errors
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: strings.TrimSpace(fmt.Sprintf(format, args...)),
			Code:    code,
		}
		if ve.Field == "" {
			ve.Field = "fleet"
		}
		if pos := errors.Positions(e); len(pos) > 0 && pos[0].IsValid() {
			ve.Line = pos[0].Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = Errors{{Field: "fleet", Message: err.Error(), Code: code}}
	}
	return out
}
