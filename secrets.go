package environ

import (
	"fmt"

	"gopkg.in/ini.v1"
)

const redactedMarker = "<SECRET>"

// Secret is a string that redacts itself in aggregate display contexts.
// It behaves as a plain string everywhere else: comparison, concatenation,
// and direct printing all expose the underlying value. Only PrettyString,
// the configuration instance's own display machinery, substitutes the
// redaction marker for Secret-typed fields.
//
// Declare secret-bearing fields with this type:
//
//	type Config struct {
//	    APIKey environ.Secret `secret:"vault"`
//	}
type Secret string

// String returns the real underlying value. Printing a Secret directly
// reveals it; redaction only applies through the owning struct's rendering.
func (s Secret) String() string { return string(s) }

// Redacted returns the marker shown in place of the value when the owning
// configuration struct is rendered as a whole.
func (s Secret) Redacted() string { return redactedMarker }

// INISecrets resolves fields from a section of an INI file. The file is
// parsed at most once per INISecrets instance: either eagerly by
// NewINISecretsFromPath, or lazily on first lookup when the path comes from
// an environment variable. There is no invalidation or reload; concurrent
// Load calls sharing one instance must be serialized by the caller.
type INISecrets struct {
	section    string
	file       *ini.File
	envName    string
	envDefault string
}

// NewINISecretsFromPath parses the INI file at path immediately.
func NewINISecretsFromPath(path, section string) (*INISecrets, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading secrets file %q: %w", path, err)
	}
	return &INISecrets{section: section, file: f}, nil
}

// NewINISecretsFromFile wraps an already-parsed INI file.
func NewINISecretsFromFile(f *ini.File, section string) *INISecrets {
	return &INISecrets{section: section, file: f}
}

// NewINISecretsFromPathInEnv defers loading until the first lookup: the file
// path is then read from the environment variable envName, falling back to
// defaultPath. Useful in tests, where the environment is assembled after the
// provider is constructed.
func NewINISecretsFromPathInEnv(envName, defaultPath, section string) *INISecrets {
	return &INISecrets{section: section, envName: envName, envDefault: defaultPath}
}

// Resolve looks the field up in the configured section under its explicit
// `env` tag or its flat "group_field" key. Keys are matched as given, with
// no prefix and no case transformation. A field-level `section` tag
// overrides the provider's section.
func (s *INISecrets) Resolve(env Environment, f Field) (string, error) {
	if s.file == nil {
		if s.envName == "" {
			return "", fmt.Errorf("ini secrets: no file and no path environment variable configured")
		}
		f.Logger().Debug("looking up secrets file path", "key", s.envName)
		path, ok := env[s.envName]
		if !ok {
			path = s.envDefault
		}
		file, err := ini.Load(path)
		if err != nil {
			return "", fmt.Errorf("loading secrets file %q: %w", path, err)
		}
		s.file = file
	}

	key := f.EnvTag
	if key == "" {
		key = f.FlatName()
	}
	section := s.section
	if f.Section != "" {
		section = f.Section
	}

	f.Logger().Debug("looking up secret", "key", key, "section", section)
	if sec, err := s.file.GetSection(section); err == nil {
		if k, err := sec.GetKey(key); err == nil {
			return k.String(), nil
		}
	}
	if f.HasDefault {
		return f.Default, nil
	}
	return "", &MissingSecretError{Key: key}
}

// VaultEnvSecrets resolves fields from environment variables under its own
// prefix, independent of the Loader's application prefix. This mirrors the
// common vault-agent pattern of projecting secrets into a separate variable
// namespace.
//
// The prefix is either the static Prefix string or, when PrefixFunc is set,
// computed from the environment at lookup time. An error from PrefixFunc
// aborts resolution and propagates unchanged.
type VaultEnvSecrets struct {
	Prefix     string
	PrefixFunc func(Environment) (string, error)
}

// NewVaultEnvSecrets returns a provider with a static prefix.
func NewVaultEnvSecrets(prefix string) *VaultEnvSecrets {
	return &VaultEnvSecrets{Prefix: prefix}
}

func (v *VaultEnvSecrets) Resolve(env Environment, f Field) (string, error) {
	prefix := v.Prefix
	if v.PrefixFunc != nil {
		var err error
		if prefix, err = v.PrefixFunc(env); err != nil {
			return "", err
		}
	}

	key := f.PrefixedName(prefix)
	f.Logger().Debug("looking up environment variable", "key", key)
	if val, ok := env[key]; ok {
		return val, nil
	}
	if f.HasDefault {
		return f.Default, nil
	}
	return "", &MissingSecretError{Key: key}
}
