package ghe

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// paramField is the encoding plan for one tagged struct field.
type paramField struct {
	index     []int
	name      string
	omitEmpty bool
}

// ParameterEncoder turns option structs into query parameters using `url`
// struct tags. Field plans are derived once per type and memoized.
type ParameterEncoder struct {
	plans *Memo[reflect.Type, []paramField]
}

// NewParameterEncoder creates an encoder with an empty plan cache.
func NewParameterEncoder() *ParameterEncoder {
	return &ParameterEncoder{plans: NewMemo[reflect.Type, []paramField]()}
}

// Encode returns the query parameters for opts. Nil and non-struct values
// encode to an empty set.
//
// Supported field types are strings, bools, integers, time.Time (RFC 3339),
// string slices (comma joined) and pointers to any of these. Untagged fields
// and fields tagged "-" are skipped.
func (e *ParameterEncoder) Encode(opts any) url.Values {
	values := url.Values{}
	if opts == nil {
		return values
	}

	rv := reflect.ValueOf(opts)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return values
		}

		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return values
	}

	for _, field := range e.plans.GetOrCompute(rv.Type(), planFields) {
		fv := rv.FieldByIndex(field.index)
		if field.omitEmpty && isEmptyParam(fv) {
			continue
		}

		text, ok := formatParam(fv)
		if !ok {
			continue
		}

		values.Set(field.name, text)
	}

	return values
}

// Merge encodes opts into dst, overwriting existing keys.
func (e *ParameterEncoder) Merge(dst url.Values, opts any) url.Values {
	if dst == nil {
		dst = url.Values{}
	}

	for key, vals := range e.Encode(opts) {
		dst[key] = vals
	}

	return dst
}

// CachedTypes reports how many struct types have a memoized plan.
func (e *ParameterEncoder) CachedTypes() int {
	return e.plans.Len()
}

// Reset drops all memoized plans.
func (e *ParameterEncoder) Reset() {
	e.plans.Clear()
}

func planFields(typ reflect.Type) []paramField {
	fields := make([]paramField, 0, typ.NumField())

	for i := range typ.NumField() {
		structField := typ.Field(i)
		if !structField.IsExported() {
			continue
		}

		tag, ok := structField.Tag.Lookup("url")
		if !ok || tag == "-" {
			continue
		}

		name, options, _ := strings.Cut(tag, ",")
		if name == "" {
			name = strings.ToLower(structField.Name)
		}

		fields = append(fields, paramField{
			index:     structField.Index,
			name:      name,
			omitEmpty: strings.Contains(options, "omitempty"),
		})
	}

	return fields
}

// isEmptyParam follows encoding/json omitempty rules: nil pointers, empty
// slices and zero scalars are empty.
func isEmptyParam(fv reflect.Value) bool {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return fv.IsNil()
	case reflect.Slice, reflect.Map:
		return fv.Len() == 0
	default:
		return fv.IsZero()
	}
}

func formatParam(fv reflect.Value) (string, bool) {
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return "", false
		}

		fv = fv.Elem()
	}

	if t, ok := fv.Interface().(time.Time); ok {
		if t.IsZero() {
			return "", true
		}

		return t.UTC().Format(time.RFC3339), true
	}

	switch fv.Kind() {
	case reflect.String:
		return fv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(fv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(fv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(fv.Uint(), 10), true
	case reflect.Slice:
		parts := make([]string, 0, fv.Len())

		for i := range fv.Len() {
			elem, ok := formatParam(fv.Index(i))
			if ok && elem != "" {
				parts = append(parts, elem)
			}
		}

		return strings.Join(parts, ","), true
	default:
		return "", false
	}
}
