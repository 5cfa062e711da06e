package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// rowValidator checks request structs that never pass through gin binding,
// such as bulk and CSV import rows. It reads the same binding tags gin does.
var rowValidator = newRowValidator()

func newRowValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	UseJSONFieldNames(v)
	return v
}

// UseJSONFieldNames makes field errors name fields the way clients send them
func UseJSONFieldNames(v *validator.Validate) {
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
}

func validateRow(row interface{}) error {
	if err := rowValidator.Struct(row); err != nil {
		return validationError("%s", ValidationMessage(err))
	}
	return nil
}

// ValidationMessage describes the first failed binding rule. Errors that are
// not validator failures (malformed JSON, wrong types) get a generic message.
func ValidationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Invalid request body"
	}
	fe := errs[0]
	field := fe.Field()
	// "email|len=0" style alternatives are described by their first rule
	switch strings.SplitN(fe.Tag(), "|", 2)[0] {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid UUID"
	case "url":
		return field + " must be a valid URL"
	case "datetime":
		return field + " must be YYYY-MM-DD"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return field + " is invalid"
}
