package ghe

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequireArgument fails with KindArgumentInvalid when value is nil or a nil
// pointer, map, slice or interface.
func RequireArgument(name string, value any) error {
	if value == nil {
		return NewArgumentError(name, "is required")
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return NewArgumentError(name, "is required")
		}
	default:
	}

	return nil
}

// Validator checks request payloads against their `validate` struct tags
// before anything is sent. It caches struct metadata, so one instance should
// be shared by a client.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names.
func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		if name == "" {
			return field.Name
		}

		return name
	})

	return &Validator{validate: validate}
}

// Argument checks that value is present and, for structs, that its tags hold.
// The first violation becomes an ArgumentInvalid error naming the field, e.g.
// "hook.script_repository.full_name".
func (v *Validator) Argument(name string, value any) error {
	err := RequireArgument(name, value)
	if err != nil {
		return err
	}

	target := reflect.Indirect(reflect.ValueOf(value))
	if target.Kind() != reflect.Struct {
		return nil
	}

	err = v.validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]

		return NewArgumentError(fieldPath(name, first.Namespace()), "failed '"+first.Tag()+"' validation")
	}

	return NewArgumentError(name, err.Error())
}

// fieldPath replaces the struct name at the root of namespace with name.
func fieldPath(name, namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return name
	}

	return name + "." + rest
}
