package binder

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// source yields the raw values of a named parameter.
type source interface {
	lookup(name string) []string
}

type lookupFunc func(name string) []string

func (f lookupFunc) lookup(name string) []string { return f(name) }

type valuesSource url.Values

func (v valuesSource) lookup(name string) []string { return v[name] }

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// setter decodes raw parameter values into a settable field.
type setter func(field reflect.Value, values []string) error

// fieldPlan binds one struct field.
type fieldPlan struct {
	index int
	name  string
	param string
	set   setter
}

type planKey struct {
	typ reflect.Type
	tag string
}

// plans caches the binding plan of every struct type and tag seen so far.
var plans sync.Map

// bindToStruct binds values to the struct v points to, using tagName to
// find parameter names and wrapping failures in bindErr.
func bindToStruct(v any, tagName string, src source, bindErr error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}

	fields, err := planFor(rv.Type(), tagName)
	if err != nil {
		return fmt.Errorf("%w: %v", bindErr, err)
	}
	for _, f := range fields {
		values := src.lookup(f.param)
		if len(values) == 0 {
			continue
		}
		if err := f.set(rv.Field(f.index), values); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, f.name, err)
		}
	}
	return nil
}

func planFor(t reflect.Type, tagName string) ([]fieldPlan, error) {
	key := planKey{typ: t, tag: tagName}
	if cached, ok := plans.Load(key); ok {
		return cached.([]fieldPlan), nil
	}

	var fields []fieldPlan
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		param, skip := parseFieldTag(sf, tagName)
		if skip {
			continue
		}
		set, err := setterFor(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		fields = append(fields, fieldPlan{index: i, name: sf.Name, param: param, set: set})
	}

	plans.Store(key, fields)
	return fields, nil
}

// parseFieldTag returns the parameter name of a field and whether the field
// is excluded with "-". Untagged fields use their lowercased name.
func parseFieldTag(field reflect.StructField, tagName string) (param string, skip bool) {
	tag := field.Tag.Get(tagName)
	switch tag {
	case "":
		return strings.ToLower(field.Name), false
	case "-":
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	return name, false
}

func setterFor(t reflect.Type) (setter, error) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return func(field reflect.Value, values []string) error {
			u := field.Addr().Interface().(encoding.TextUnmarshaler)
			if err := u.UnmarshalText([]byte(strings.TrimSpace(values[0]))); err != nil {
				return fmt.Errorf("invalid %s value %q", t, values[0])
			}
			return nil
		}, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem, err := setterFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(field reflect.Value, values []string) error {
			v := reflect.New(t.Elem())
			if err := elem(v.Elem(), values); err != nil {
				return err
			}
			field.Set(v)
			return nil
		}, nil

	case reflect.Slice:
		elem, err := setterFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(field reflect.Value, values []string) error {
			parts := splitValues(values)
			slice := reflect.MakeSlice(t, len(parts), len(parts))
			for i, part := range parts {
				if err := elem(slice.Index(i), []string{part}); err != nil {
					return err
				}
			}
			field.Set(slice)
			return nil
		}, nil

	case reflect.String:
		return func(field reflect.Value, values []string) error {
			field.SetString(values[0])
			return nil
		}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(field reflect.Value, values []string) error {
			n, err := strconv.ParseInt(values[0], 10, t.Bits())
			if err != nil {
				return fmt.Errorf("invalid int value %q", values[0])
			}
			field.SetInt(n)
			return nil
		}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(field reflect.Value, values []string) error {
			n, err := strconv.ParseUint(values[0], 10, t.Bits())
			if err != nil {
				return fmt.Errorf("invalid uint value %q", values[0])
			}
			field.SetUint(n)
			return nil
		}, nil

	case reflect.Float32, reflect.Float64:
		return func(field reflect.Value, values []string) error {
			n, err := strconv.ParseFloat(values[0], t.Bits())
			if err != nil {
				return fmt.Errorf("invalid float value %q", values[0])
			}
			field.SetFloat(n)
			return nil
		}, nil

	case reflect.Bool:
		return func(field reflect.Value, values []string) error {
			b, err := parseBool(values[0])
			if err != nil {
				return err
			}
			field.SetBool(b)
			return nil
		}, nil
	}

	return nil, fmt.Errorf("unsupported type %s", t)
}

// parseBool accepts strconv.ParseBool input plus on/off and yes/no. An empty
// value is false.
func parseBool(value string) (bool, error) {
	if b, err := strconv.ParseBool(value); err == nil {
		return b, nil
	}
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool value %q", value)
}

// splitValues flattens repeated and comma-separated values, dropping blanks.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
