package extractor

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// fieldTag is one struct field's binding declaration: the source name plus
// any comma-separated options.
type fieldTag struct {
	name     string
	required bool
}

// parseFieldTag extracts the source name and options from a struct tag.
// An absent tag means the field is not bound by this extractor; "-" skips
// explicitly.
func parseFieldTag(field reflect.StructField, tagName string) (fieldTag, bool) {
	tag, ok := field.Tag.Lookup(tagName)
	if !ok || tag == "" || tag == "-" {
		return fieldTag{}, false
	}

	parts := strings.Split(tag, ",")
	ft := fieldTag{name: parts[0]}
	for _, opt := range parts[1:] {
		if opt == "required" {
			ft.required = true
		}
	}
	if ft.name == "" {
		return fieldTag{}, false
	}
	return ft, true
}

// targetStruct validates the extraction target and returns its dereferenced
// struct value.
func targetStruct(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, newError(http.StatusInternalServerError, "invalid_target", "", ErrInvalidTarget)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, newError(http.StatusInternalServerError, "invalid_target", "", ErrInvalidTarget)
	}
	return rv, nil
}

// bindValues binds string values into every field carrying the given tag.
// A field whose value fails to parse produces a client error naming the
// source field, not the Go field.
func bindValues(v any, tagName, code string, values map[string][]string) error {
	rv, err := targetStruct(v)
	if err != nil {
		return err
	}
	rt := rv.Type()

	for i := range rv.NumField() {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		ft, ok := parseFieldTag(rt.Field(i), tagName)
		if !ok {
			continue
		}

		fieldValues, exists := values[ft.name]
		if !exists || len(fieldValues) == 0 {
			if ft.required {
				return newError(http.StatusBadRequest, "missing_"+tagName, ft.name, ErrMissingValue)
			}
			continue
		}

		if err := setFieldValue(field, rt.Field(i).Type, fieldValues); err != nil {
			return newError(http.StatusBadRequest, code, ft.name, err)
		}
	}

	return nil
}

// setFieldValue sets the field value from string values.
func setFieldValue(field reflect.Value, fieldType reflect.Type, values []string) error {
	// Dereference pointers, creating new instances for nil pointers.
	if fieldType.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(fieldType.Elem()))
		}
		return setFieldValue(field.Elem(), fieldType.Elem(), values)
	}

	if fieldType.Kind() == reflect.Slice {
		return setSliceValue(field, fieldType, values)
	}

	// Scalar types take the first value, ignoring the rest.
	if len(values) == 0 {
		return nil
	}
	value := values[0]

	switch fieldType.Kind() {
	case reflect.String:
		field.SetString(sanitizeStringValue(value))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			// Accept common boolean representations from HTML forms.
			switch strings.ToLower(value) {
			case "on", "yes", "1":
				b = true
			case "off", "no", "0", "":
				b = false
			default:
				return fmt.Errorf("invalid bool value %q", value)
			}
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported type %s", fieldType.Kind())
	}

	return nil
}

// setSliceValue sets slice field values from string values. Both repeated
// fields and comma-separated values in a single field are accepted.
func setSliceValue(field reflect.Value, fieldType reflect.Type, values []string) error {
	elemType := fieldType.Elem()

	var allValues []string
	for _, v := range values {
		if strings.Contains(v, ",") {
			allValues = append(allValues, strings.Split(v, ",")...)
		} else {
			allValues = append(allValues, v)
		}
	}

	slice := reflect.MakeSlice(fieldType, len(allValues), len(allValues))
	for i, value := range allValues {
		if err := setFieldValue(slice.Index(i), elemType, []string{strings.TrimSpace(value)}); err != nil {
			return err
		}
	}

	field.Set(slice)
	return nil
}

// sanitizeStringValue removes characters usable for injection attacks:
// NUL bytes, bare CR/LF, and non-printable control characters.
func sanitizeStringValue(value string) string {
	value = strings.ReplaceAll(value, "\x00", "")
	value = strings.ReplaceAll(value, "\r\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")

	var builder strings.Builder
	builder.Grow(len(value))
	for _, r := range value {
		if r == '\t' || r >= ' ' || unicode.IsGraphic(r) {
			if utf8.ValidRune(r) {
				builder.WriteRune(r)
			}
		}
	}
	return builder.String()
}

// validateBoundary rejects multipart boundaries that would break parsing
// or enable DoS through pathological lengths.
func validateBoundary(boundary string) bool {
	if boundary == "" || len(boundary) > 100 {
		return false
	}
	for _, r := range boundary {
		if r == '\x00' || r == '\r' || r == '\n' {
			return false
		}
	}
	return true
}
