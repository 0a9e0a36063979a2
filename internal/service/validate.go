package service

import (
	"errors"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so field errors line up with the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs the `validate` tags of s.
func checkStruct(s any) *ValidationError {
	ve := &ValidationError{}
	err := validate.Struct(s)
	var fes validator.ValidationErrors
	switch {
	case errors.As(err, &fes):
		for _, fe := range fes {
			ve.Add(fe.Field(), tagCode(fe.Tag()))
		}
	case err != nil:
		ve.Add("non_field_errors", CodeInvalid)
	}
	return ve
}

func tagCode(tag string) string {
	switch tag {
	case "required":
		return CodeRequired
	case "email":
		return CodeEmail
	case "min":
		return CodeTooShort
	case "max":
		return CodeTooLong
	}
	return CodeInvalid
}

func validEmail(s string) bool { return validate.Var(s, "required,email,max=254") == nil }

func passwordCode(p string) string {
	switch n := len([]rune(p)); {
	case n < 8:
		return CodeTooShort
	case n > 128:
		return CodeTooLong
	}
	return ""
}

// numericName reports whether s consists only of digits.  Such names are
// rejected for first_name and last_name.
func numericName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// parseDate parses a YYYY-MM-DD calendar date in UTC.
func parseDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	return t, err == nil
}

// Validate runs the `validate` tags of s.  The result is a
// *ValidationError or nil.
func Validate(s any) error { return checkStruct(s).OrNil() }
