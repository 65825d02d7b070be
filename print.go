package environ

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
)

var secretType = reflect.TypeOf((*Secret)(nil)).Elem()

// PrettyString renders a configuration struct as indented JSON with every
// secret replaced by the redaction marker. This is the instance-level display
// machinery: Secret-typed fields and fields carrying a `secret` tag never
// show their literal value here, while printing a Secret on its own still
// reveals it.
//
// Keys follow the `env` or `secret` tag when present, the field name
// otherwise. Passwords embedded in url.URL fields are masked as well.
func PrettyString(c any) string {
	rv := reflect.ValueOf(c)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Sprintf("%T is not a struct", c)
	}

	b, err := json.MarshalIndent(safeMap(rv), "", "  ")
	if err != nil {
		return fmt.Sprintf("error pretty-printing config: %v", err)
	}
	return string(b)
}

// safeMap recursively builds a display representation with secrets redacted.
func safeMap(val reflect.Value) map[string]any {
	typ := val.Type()
	out := make(map[string]any, typ.NumField())

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		fv := val.Field(i)

		if !fv.CanInterface() {
			continue
		}

		key := sf.Tag.Get("env")
		if key == "" {
			key = sf.Name
		}

		switch {
		case isSecretValue(fv.Type()) || sf.Tag.Get("secret") != "":
			if fv.Kind() == reflect.Slice {
				redacted := make([]any, fv.Len())
				for j := range redacted {
					redacted[j] = redactedMarker
				}
				out[key] = redacted
			} else {
				out[key] = redactedMarker
			}
		case isURLType(fv.Type()):
			out[key] = maskURLPassword(fv.Interface())
		case fv.Kind() == reflect.Struct && !hasConverter(fv.Type()):
			out[key] = safeMap(fv)
		case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct && !hasConverter(fv.Type()):
			if fv.IsNil() {
				out[key] = nil
			} else {
				out[key] = safeMap(fv.Elem())
			}
		case fv.Kind() == reflect.Slice && !hasConverter(fv.Type()):
			slice := make([]any, fv.Len())
			for j := 0; j < fv.Len(); j++ {
				elem := fv.Index(j)
				if isURLType(elem.Type()) {
					slice[j] = maskURLPassword(elem.Interface())
				} else {
					slice[j] = elem.Interface()
				}
			}
			out[key] = slice
		default:
			out[key] = fv.Interface()
		}
	}

	return out
}

// isSecretValue reports whether t is Secret or a slice of Secret.
func isSecretValue(t reflect.Type) bool {
	if t == secretType {
		return true
	}
	return t.Kind() == reflect.Slice && t.Elem() == secretType
}

func isURLType(t reflect.Type) bool {
	return t == reflect.TypeOf((*url.URL)(nil)).Elem() || t == reflect.TypeOf((**url.URL)(nil)).Elem()
}

// maskURLPassword hides the userinfo password so connection URLs stay safe to
// log.
func maskURLPassword(val any) any {
	switch u := val.(type) {
	case url.URL:
		return maskedURLString(&u)
	case *url.URL:
		if u == nil {
			return nil
		}
		return maskedURLString(u)
	default:
		return val
	}
}

func maskedURLString(u *url.URL) string {
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			masked := *u
			masked.User = url.UserPassword(u.User.Username(), "***")
			return masked.String()
		}
	}
	return u.String()
}
