package environ

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/mail"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ConverterFunc turns a raw string into a typed value. Conversion failures
// propagate to the Load caller unchanged apart from field context.
type ConverterFunc func(raw string) (any, error)

// ConverterFactory returns a converter for t, or nil when it cannot handle
// the type. Factories are consulted in registration order after explicit
// converters.
type ConverterFactory func(t reflect.Type) ConverterFunc

var (
	converters         = make(map[reflect.Type]ConverterFunc)
	converterFactories []ConverterFactory
)

// RegisterConverter plugs in a converter for one concrete type. Call it from
// init() or main() before Load.
func RegisterConverter(t reflect.Type, fn ConverterFunc) {
	converters[t] = fn
}

// RegisterConverterFactory plugs in a factory covering a category of types,
// e.g. everything implementing encoding.TextUnmarshaler.
func RegisterConverterFactory(factory ConverterFactory) {
	converterFactories = append(converterFactories, factory)
}

func converterFor(t reflect.Type) ConverterFunc {
	if fn, ok := converters[t]; ok {
		return fn
	}
	for _, factory := range converterFactories {
		if fn := factory(t); fn != nil {
			return fn
		}
	}
	return nil
}

// hasConverter reports whether t resolves as a single value. Struct types
// without a converter are groups and get recursed into instead.
func hasConverter(t reflect.Type) bool {
	return converterFor(t) != nil
}

// setValue converts raw and assigns it to fv. Slices without a dedicated
// converter are parsed as comma-separated values, element by element.
func setValue(fv reflect.Value, raw string) error {
	t := fv.Type()

	if fv.Kind() == reflect.Slice && !hasConverter(t) {
		slice := reflect.MakeSlice(t, 0, 0)
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := convertValue(part, t.Elem())
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, v)
		}
		fv.Set(slice)
		return nil
	}

	v, err := convertValue(raw, t)
	if err != nil {
		return err
	}
	fv.Set(v)
	return nil
}

func convertValue(raw string, t reflect.Type) (reflect.Value, error) {
	if fn := converterFor(t); fn != nil {
		out, err := fn(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.ValueOf(out)
		if rv.Type() != t {
			if !rv.Type().ConvertibleTo(t) {
				return reflect.Value{}, fmt.Errorf("converter for %s returned %T", t, out)
			}
			rv = rv.Convert(t)
		}
		return rv, nil
	}

	out, err := parseScalar(raw, t)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(out).Convert(t), nil
}

// parseScalar handles the basic kinds. int64 values written with a duration
// suffix ("30s", "1h") parse as nanoseconds.
func parseScalar(raw string, t reflect.Type) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t.Kind() == reflect.Int64 && strings.HasSuffix(raw, "s") {
			d, err := time.ParseDuration(raw)
			return int64(d), err
		}
		return strconv.ParseInt(raw, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(raw, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, t.Bits())
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

// registerBoth registers parse for both T and *T.
func registerBoth[T any](parse func(raw string) (T, error)) {
	RegisterConverter(reflect.TypeOf((*T)(nil)).Elem(), func(raw string) (any, error) {
		v, err := parse(raw)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	RegisterConverter(reflect.TypeOf((**T)(nil)).Elem(), func(raw string) (any, error) {
		v, err := parse(raw)
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: must be RFC3339 or Unix seconds", raw)
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return slog.Level(n), nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be debug|info|warn|error or integer", raw)
}

func parseURL(raw string) (url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return url.URL{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	return *u, nil
}

func parseIP(raw string) (net.IP, error) {
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address %q", raw)
	}
	return ip, nil
}

func parseMailAddress(raw string) (mail.Address, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return mail.Address{}, fmt.Errorf("invalid email address %q: %w", raw, err)
	}
	return *addr, nil
}

func parseBigInt(raw string) (big.Int, error) {
	bi := new(big.Int)
	if _, ok := bi.SetString(raw, 10); !ok {
		return big.Int{}, fmt.Errorf("invalid big.Int %q: must be a base-10 integer", raw)
	}
	return *bi, nil
}

func parseRSAKey(raw string) (rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return rsa.PrivateKey{}, errors.New("no PEM block in RSA private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return rsa.PrivateKey{}, fmt.Errorf("parsing RSA private key: %w", err)
		}
		return *key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return rsa.PrivateKey{}, fmt.Errorf("parsing PKCS#8 private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return rsa.PrivateKey{}, errors.New("PKCS#8 key is not an RSA private key")
		}
		return *rsaKey, nil
	default:
		return rsa.PrivateKey{}, fmt.Errorf("unsupported PEM block type %q for RSA private key", block.Type)
	}
}

func parseECDSAKey(raw string) (ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return ecdsa.PrivateKey{}, errors.New("no PEM block in ECDSA private key")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return ecdsa.PrivateKey{}, fmt.Errorf("parsing EC private key: %w", err)
		}
		return *key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return ecdsa.PrivateKey{}, fmt.Errorf("parsing PKCS#8 private key: %w", err)
		}
		ecdsaKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return ecdsa.PrivateKey{}, errors.New("PKCS#8 key is not an ECDSA private key")
		}
		return *ecdsaKey, nil
	default:
		return ecdsa.PrivateKey{}, fmt.Errorf("unsupported PEM block type %q for ECDSA private key", block.Type)
	}
}

func textUnmarshalerFactory(t reflect.Type) ConverterFunc {
	target := t
	if t.Kind() == reflect.Pointer {
		target = t.Elem()
	}
	unmarshaler := reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	if !reflect.PointerTo(target).Implements(unmarshaler) {
		return nil
	}
	return func(raw string) (any, error) {
		v := reflect.New(target).Interface().(encoding.TextUnmarshaler)
		if err := v.UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
		if t.Kind() == reflect.Pointer {
			return v, nil
		}
		return reflect.ValueOf(v).Elem().Interface(), nil
	}
}

func init() {
	RegisterConverterFactory(textUnmarshalerFactory)

	registerBoth(time.ParseDuration)
	registerBoth(parseTime)
	registerBoth(parseLogLevel)
	registerBoth(parseURL)
	registerBoth(parseIP)
	registerBoth(parseMailAddress)
	registerBoth(parseBigInt)
	registerBoth(decimal.NewFromString)
	registerBoth(uuid.Parse)
	registerBoth(resource.ParseQuantity)
	registerBoth(parseRSAKey)
	registerBoth(parseECDSAKey)

	// Compiled expressions are only useful through the pointer form.
	RegisterConverter(reflect.TypeOf((**vm.Program)(nil)).Elem(), func(raw string) (any, error) {
		program, err := expr.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling expression %q: %w", raw, err)
		}
		return program, nil
	})
}
