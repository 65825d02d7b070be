package environ

import (
	"log/slog"
	"os"
	"strings"
	"unicode"
)

// Environment is the key-value mapping fields are resolved against. It is
// usually a snapshot of the process environment but can be any map, which
// keeps tests hermetic.
type Environment map[string]string

// OSEnvironment returns a snapshot of the current process environment.
func OSEnvironment() Environment {
	env := make(Environment)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Provider resolves a single field's raw value from some backing store.
// Implementations return the raw string (possibly the field's default) or an
// error; built-in providers return *MissingValueError or *MissingSecretError
// when a required field has no value.
//
// Custom providers are registered on a Loader under a name and selected per
// field with the `secret:"name"` struct tag.
type Provider interface {
	Resolve(env Environment, f Field) (string, error)
}

// Field carries the metadata a Provider needs to resolve one leaf field: the
// field's own name, its position in the group tree, the application prefix,
// and its default/override tags.
type Field struct {
	// Name is the Go struct field name as declared.
	Name string

	// EnvTag is the explicit external name from the `env` tag. When set it is
	// used verbatim: no prefix, no case transformation.
	EnvTag string

	// Path holds the field names of the enclosing groups, outermost first.
	Path []string

	// Prefix is the application prefix configured on the Loader.
	Prefix string

	// Default is the raw default value; HasDefault reports whether one was
	// declared at all. A declared empty default is distinct from no default.
	Default    string
	HasDefault bool

	// Section optionally overrides an INI provider's section for this field.
	Section string

	// Help is free-form documentation from the `help` tag.
	Help string

	logger *slog.Logger
}

// EnvName returns the key used for plain environment lookups: the explicit
// `env` tag if present, otherwise the derived <PREFIX>_<GROUPS...>_<NAME>
// form using the Loader's prefix.
func (f Field) EnvName() string {
	return f.PrefixedName(f.Prefix)
}

// PrefixedName derives the lookup key under an arbitrary prefix. The explicit
// `env` tag still wins and bypasses derivation entirely.
func (f Field) PrefixedName(prefix string) string {
	if f.EnvTag != "" {
		return f.EnvTag
	}
	return deriveEnvName(prefix, f.Path, f.Name)
}

// FlatName returns the un-prefixed, lower-case underscore join of the group
// path and field name, e.g. "db_api_key". INI providers look sections up by
// this key.
func (f Field) FlatName() string {
	parts := make([]string, 0, len(f.Path)+1)
	for _, p := range f.Path {
		parts = append(parts, snake(p))
	}
	parts = append(parts, snake(f.Name))
	return strings.ToLower(strings.Join(parts, "_"))
}

// Logger returns the Loader's logger, never nil.
func (f Field) Logger() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}

// deriveEnvName composes <PREFIX>_<GROUP1>_..._<GROUPN>_<FIELD>, upper-cased.
// An empty prefix omits the leading segment.
func deriveEnvName(prefix string, path []string, name string) string {
	parts := make([]string, 0, len(path)+2)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, p := range path {
		parts = append(parts, snake(p))
	}
	parts = append(parts, snake(name))
	return strings.ToUpper(strings.Join(parts, "_"))
}

// snake splits a CamelCase identifier into underscore-separated words,
// keeping runs of capitals together: "APIKey" -> "API_Key", "DBHost" ->
// "DB_Host", "Port" -> "Port".
func snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// envProvider is the default binding for fields without a `secret` tag.
type envProvider struct{}

func (envProvider) Resolve(env Environment, f Field) (string, error) {
	key := f.EnvName()
	f.Logger().Debug("looking up environment variable", "key", key)
	if v, ok := env[key]; ok {
		return v, nil
	}
	if f.HasDefault {
		return f.Default, nil
	}
	return "", &MissingValueError{Key: key}
}
