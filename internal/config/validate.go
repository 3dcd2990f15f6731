package config

import (
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"

	"api_smoke_testing/internal/model"
)

var validate = validator.New()

func validateCases(cases []model.Case) error {
	var problems []string
	for _, c := range cases {
		if err := validate.Struct(c.Definition); err != nil {
			problems = append(problems, fmt.Sprintf("case %q: %s", c.Name, validationMessage(err)))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// validationMessage turns validator errors into field-level messages keyed by
// the case file's field names.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := fieldName(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field '%s' is required", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be greater than or equal to %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on the '%s' tag", field, e.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

func fieldName(structField string) string {
	switch structField {
	case "URL":
		return "url"
	case "ExpectedStatus":
		return "expected_status"
	case "TimeoutSeconds":
		return "timeout_sec"
	default:
		return strings.ToLower(structField)
	}
}
