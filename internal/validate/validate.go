// Package validate wraps go-playground/validator with JSON field names, the
// "username" rule and messages that map onto common.ErrValidation.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pliu/chatroom/internal/common"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = val.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = val.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return val
}

func describe(field string, fe validator.FieldError) error {
	switch fe.Tag() {
	case "required", "required_without":
		return common.Validationf("%s: this field is required", field)
	case "notblank":
		return common.Validationf("%s: this field may not be blank", field)
	case "email":
		return common.Validationf("%s: enter a valid email address", field)
	case "max":
		return common.Validationf("%s: ensure this field has no more than %s characters", field, fe.Param())
	case "min":
		return common.Validationf("%s: ensure this field has at least %s characters", field, fe.Param())
	case "gt", "gte":
		return common.Validationf("%s: must be greater than %s", field, fe.Param())
	case "username":
		return common.Validationf("%s: letters, digits and @/./+/-/_ only", field)
	default:
		return common.Validationf("%s: invalid value", field)
	}
}

// Struct validates s and reports the first offending field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return describe(verrs[0].Field(), verrs[0])
	}
	return common.Validationf("invalid input")
}

// Var validates a single value against tag.
func Var(field string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return describe(field, verrs[0])
	}
	return common.Validationf("%s: invalid value", field)
}
