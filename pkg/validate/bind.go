package validate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// bind fills the exported fields of dst (a pointer to struct) from lookup,
// keyed by the given struct tag. Absent values fall back to the `default`
// tag. Values that do not parse into the field type become field errors.
func bind(dst any, tag string, lookup func(name string) (string, bool)) []FieldError {
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()

	var errs []FieldError
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.SplitN(sf.Tag.Get(tag), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}

		raw, ok := lookup(name)
		if !ok {
			raw, ok = sf.Tag.Lookup("default")
		}
		if !ok {
			continue
		}

		if err := setField(rv.Field(i), raw); err != nil {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("%s must be %s", name, err.Error()),
				Code:    "invalid_type",
			})
		}
	}
	return errs
}

type kindError string

func (e kindError) Error() string { return string(e) }

func setField(f reflect.Value, raw string) error {
	if f.Kind() == reflect.Pointer {
		elem := reflect.New(f.Type().Elem())
		if err := setField(elem.Elem(), raw); err != nil {
			return err
		}
		f.Set(elem)
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return kindError("a boolean")
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return kindError("an integer")
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, f.Type().Bits())
		if err != nil {
			return kindError("a non-negative integer")
		}
		f.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, f.Type().Bits())
		if err != nil {
			return kindError("a number")
		}
		f.SetFloat(n)
	default:
		return kindError("a supported type")
	}
	return nil
}
