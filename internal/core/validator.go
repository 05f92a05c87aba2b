package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"craftfolio/internal/types"
)

// Validator wraps go-playground/validator and translates its failures into
// the structured error codes clients see. Missing required fields map to
// "validation_missing_required_field"; everything else maps to
// "validation_invalid_field" with the failing tag in the details.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates dst against its `validate` struct tags. Field
// names in the returned error use the JSON tag when one is present, so the
// client sees the wire name it actually sent.
func (v *Validator) ValidateStruct(dst any) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	// Report the first failure; clients fix one field at a time anyway.
	fe := fieldErrs[0]
	field := jsonFieldName(dst, fe)

	if fe.Tag() == "required" {
		return types.NewAppError(
			types.ErrCodeValidationMissingField,
			"missing required field: "+field,
			nil,
		).WithDetails(map[string]any{"field": field})
	}

	return types.NewAppError(
		types.ErrCodeValidationInvalidField,
		"invalid value for field: "+field,
		nil,
	).WithDetails(map[string]any{"field": field, "rule": fe.Tag()})
}

// jsonFieldName resolves the wire name for a failed field by reflecting the
// JSON tag off the struct definition, falling back to the Go field name.
func jsonFieldName(dst any, fe validator.FieldError) string {
	t := dereferencedType(dst)
	if t == nil {
		return fe.Field()
	}
	if sf, ok := t.FieldByName(fe.StructField()); ok {
		tag := sf.Tag.Get("json")
		if tag != "" && tag != "-" {
			if name, _, found := strings.Cut(tag, ","); found || name != "" {
				return name
			}
		}
	}
	return fe.Field()
}

// dereferencedType returns the struct type behind dst, unwrapping pointers.
func dereferencedType(dst any) reflect.Type {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}
