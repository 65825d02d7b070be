package environ

import (
	"reflect"
	"slices"
)

// FieldSetting describes one leaf field of a configuration struct: where its
// value comes from and how it is declared. Useful for generating operator
// documentation or validating deployment manifests.
type FieldSetting struct {
	Path       string // dot-separated field path, e.g. "DB.Host"
	FieldName  string // Go struct field name
	Key        string // lookup key: explicit tag, derived env name, or flat secret key
	Type       string // Go type name
	Default    string // declared default value
	HasDefault bool
	Required   bool   // no default declared (or required:"true")
	Secret     bool   // Secret-typed or bound to a secret provider
	Provider   string // secret provider name from the `secret` tag, if any
	Section    string // INI section override, if any
	Help       string // free-form documentation from the `help` tag
}

// Settings reports metadata for every leaf field of target, traversing
// nested groups, using the Loader's prefix for derived keys.
func (l *Loader) Settings(target any) []FieldSetting {
	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var settings []FieldSetting
	l.collectSettings(rv.Type(), nil, "", &settings)
	return settings
}

// Settings is the one-shot form of Loader.Settings.
func Settings(target any, opts ...Option) []FieldSetting {
	return New(opts...).Settings(target)
}

func (l *Loader) collectSettings(typ reflect.Type, path []string, dotted string, settings *[]FieldSetting) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		fieldPath := sf.Name
		if dotted != "" {
			fieldPath = dotted + "." + sf.Name
		}

		t := sf.Type
		if t.Kind() == reflect.Struct && !hasConverter(t) {
			l.collectSettings(t, append(slices.Clone(path), sf.Name), fieldPath, settings)
			continue
		}
		if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct && !hasConverter(t) {
			l.collectSettings(t.Elem(), append(slices.Clone(path), sf.Name), fieldPath, settings)
			continue
		}

		f := l.fieldMeta(sf, path)
		provider := sf.Tag.Get("secret")

		key := f.EnvName()
		if provider != "" && f.EnvTag == "" {
			// Secret providers derive their own keys; the flat form is what
			// the INI provider probes, and prefixed-env providers extend it
			// with a prefix unknown here.
			key = f.FlatName()
		}

		*settings = append(*settings, FieldSetting{
			Path:       fieldPath,
			FieldName:  sf.Name,
			Key:        key,
			Type:       t.String(),
			Default:    f.Default,
			HasDefault: f.HasDefault,
			Required:   !f.HasDefault,
			Secret:     provider != "" || isSecretValue(t),
			Provider:   provider,
			Section:    f.Section,
			Help:       f.Help,
		})
	}
}

// FilterSettings returns the settings matching predicate.
func FilterSettings(settings []FieldSetting, predicate func(FieldSetting) bool) []FieldSetting {
	var filtered []FieldSetting
	for _, s := range settings {
		if predicate(s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// SecretFields returns all fields that resolve through a secret provider or
// carry a Secret value.
func SecretFields(target any, opts ...Option) []FieldSetting {
	return FilterSettings(Settings(target, opts...), func(s FieldSetting) bool {
		return s.Secret
	})
}

// RequiredFields returns all fields without a declared default.
func RequiredFields(target any, opts ...Option) []FieldSetting {
	return FilterSettings(Settings(target, opts...), func(s FieldSetting) bool {
		return s.Required
	})
}
