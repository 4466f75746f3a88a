package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/animalet/appenv/pkg/secrets"
	"github.com/pkg/errors"
)

// placeholder matches "${body}". Whitespace around the body is ignored.
var placeholder = regexp.MustCompile(`\$\{([^{}]*)\}`)

// expand substitutes placeholders in every exported string reachable from ptr. Text outside
// placeholders, a lone "$" included, is kept byte for byte. Errors name the field, e.g.
// "domains.production: vault:DOMAIN_PROD: not found".
func expand(ptr any) error {
	return expandValue(reflect.ValueOf(ptr).Elem(), "")
}

func substitute(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var err error
	out := placeholder.ReplaceAllStringFunc(s, func(token string) string {
		if err != nil {
			return token
		}
		property := strings.TrimSpace(placeholder.FindStringSubmatch(token)[1])
		var value string
		value, err = secrets.Resolve(property)
		return value
	})
	return out, err
}

func expandValue(val reflect.Value, path string) error {
	switch val.Kind() {
	case reflect.String:
		if !val.CanSet() {
			return nil
		}
		expanded, err := substitute(val.String())
		if err != nil {
			return errors.Wrap(err, fieldPath(path))
		}
		val.SetString(expanded)
	case reflect.Struct:
		t := val.Type()
		for i := range t.NumField() {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			if err := expandValue(val.Field(i), join(path, fieldName(field))); err != nil {
				return err
			}
		}
	case reflect.Pointer:
		if !val.IsNil() {
			return expandValue(val.Elem(), path)
		}
	case reflect.Interface:
		if val.IsNil() || !val.CanSet() {
			return nil
		}
		// the dynamic value is not addressable
		elem := reflect.New(val.Elem().Type()).Elem()
		elem.Set(val.Elem())
		if err := expandValue(elem, path); err != nil {
			return err
		}
		val.Set(elem)
	case reflect.Slice:
		for i := range val.Len() {
			if err := expandValue(val.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		if !val.CanInterface() {
			return nil
		}
		iter := val.MapRange()
		for iter.Next() {
			elem := reflect.New(val.Type().Elem()).Elem()
			elem.Set(iter.Value())
			if err := expandValue(elem, join(path, fmt.Sprint(iter.Key().Interface()))); err != nil {
				return err
			}
			val.SetMapIndex(iter.Key(), elem)
		}
	default:
	}
	return nil
}

// fieldName prefers the yaml key, the one users write.
func fieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func fieldPath(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
