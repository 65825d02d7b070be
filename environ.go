package environ

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// Loader resolves a tagged configuration struct against an Environment.
// Construct one with New, register secret providers, then call Load with a
// pointer to the struct to populate.
//
// A Loader itself is stateless across Load calls; provider instances may
// carry their own state (an INISecrets caches its parsed file). Sharing one
// provider instance between concurrent Load calls requires external
// synchronization.
type Loader struct {
	env       Environment
	prefix    string
	logger    *slog.Logger
	providers map[string]Provider
	dotenv    []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithPrefix sets the application prefix prepended to every derived
// environment variable name, e.g. WithPrefix("APP") makes a nested db.host
// field resolve from APP_DB_HOST.
func WithPrefix(prefix string) Option {
	return func(l *Loader) { l.prefix = prefix }
}

// WithEnvironment replaces the process environment with an explicit map.
func WithEnvironment(env Environment) Option {
	return func(l *Loader) { l.env = env }
}

// WithLogger sets the logger used for key-probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithProvider registers a secret provider under a name. Fields select it
// with `secret:"name"`.
func WithProvider(name string, p Provider) Option {
	return func(l *Loader) { l.providers[name] = p }
}

// WithDotenv overlays the given .env files onto the environment before
// resolution. Real environment variables keep precedence over file values;
// files that do not exist are skipped.
func WithDotenv(paths ...string) Option {
	return func(l *Loader) { l.dotenv = append(l.dotenv, paths...) }
}

// New creates a Loader. Without options it reads the process environment,
// uses no prefix, and logs through slog.Default.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger:    slog.Default(),
		providers: make(map[string]Provider),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.env == nil {
		l.env = OSEnvironment()
	}
	return l
}

// Load is the one-shot form: it builds a Loader from opts and populates a
// fresh T.
//
//	type Config struct {
//	    DB struct {
//	        Host string
//	        Port int `default:"5432"`
//	    }
//	}
//
//	cfg, err := environ.Load[Config](environ.WithPrefix("APP"))
func Load[T any](opts ...Option) (T, error) {
	var cfg T
	err := New(opts...).Load(&cfg)
	return cfg, err
}

// Load populates target, which must be a pointer to a struct, by walking its
// fields in declaration order. Nested structs are groups: their field names
// extend the derived key path. Resolution is fail-fast; the first missing or
// unconvertible field aborts with its error.
func (l *Loader) Load(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got %T", target)
	}
	l.overlayDotenv()
	return l.resolveStruct(rv.Elem(), nil)
}

// overlayDotenv merges pending .env files into the environment map, lowest
// precedence. Runs once; the env map is copied so a caller-supplied map is
// never mutated.
func (l *Loader) overlayDotenv() {
	if len(l.dotenv) == 0 {
		return
	}
	l.env = maps.Clone(l.env)
	for _, path := range l.dotenv {
		vals, err := godotenv.Read(path)
		if err != nil {
			l.logger.Debug("skipping dotenv file", "path", path, "error", err)
			continue
		}
		for k, v := range vals {
			if _, ok := l.env[k]; !ok {
				l.env[k] = v
			}
		}
	}
	l.dotenv = nil
}

func (l *Loader) resolveStruct(val reflect.Value, path []string) error {
	typ := val.Type()

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		fv := val.Field(i)

		if !fv.CanSet() {
			continue
		}

		// Nested groups extend the key path and recurse. Types with their own
		// converter (time.Time, url.URL, ...) are leaves even though they are
		// structs.
		if fv.Kind() == reflect.Struct && !hasConverter(fv.Type()) {
			if err := l.resolveStruct(fv, append(slices.Clone(path), sf.Name)); err != nil {
				return err
			}
			continue
		}
		if fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct && !hasConverter(fv.Type()) {
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			if err := l.resolveStruct(fv.Elem(), append(slices.Clone(path), sf.Name)); err != nil {
				return err
			}
			continue
		}

		provider, err := l.providerFor(sf)
		if err != nil {
			return err
		}

		raw, err := provider.Resolve(l.env, l.fieldMeta(sf, path))
		if err != nil {
			return err
		}

		if err := setValue(fv, raw); err != nil {
			return fmt.Errorf("field %s: %w", strings.Join(append(slices.Clone(path), sf.Name), "."), err)
		}
	}

	return nil
}

// providerFor selects the field's provider: the registered secret provider
// named by the `secret` tag, or the plain environment provider.
func (l *Loader) providerFor(sf reflect.StructField) (Provider, error) {
	name := sf.Tag.Get("secret")
	if name == "" {
		return envProvider{}, nil
	}
	p, ok := l.providers[name]
	if !ok {
		return nil, fmt.Errorf("field %s: no provider registered under %q", sf.Name, name)
	}
	return p, nil
}

func (l *Loader) fieldMeta(sf reflect.StructField, path []string) Field {
	def, hasDef := sf.Tag.Lookup("default")
	if sf.Tag.Get("required") == "true" {
		// Explicit required marker wins over a default tag.
		def, hasDef = "", false
	}
	return Field{
		Name:       sf.Name,
		EnvTag:     sf.Tag.Get("env"),
		Path:       slices.Clone(path),
		Prefix:     l.prefix,
		Default:    def,
		HasDefault: hasDef,
		Section:    sf.Tag.Get("section"),
		Help:       sf.Tag.Get("help"),
		logger:     l.logger,
	}
}
