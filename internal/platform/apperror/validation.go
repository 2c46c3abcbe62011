package apperror

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the `validate` tags on v and maps failures to ErrValidation.
func ValidateStruct(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	return MapValidationError(err)
}

func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return ErrValidation.Wrap(err)
	}

	fields := make([]map[string]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, map[string]string{
			"field":  fe.Field(),
			"reason": reason(fe),
		})
	}

	first := errs[0]
	return ErrValidation.
		WithMessage(first.Field() + " " + reason(first)).
		WithDetails(map[string]any{"fields": fields})
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
