// Package environ populates configuration structs from environment
// variables and secret stores, with defaults, derived variable names,
// required-value enforcement, and secret redaction.
//
// A configuration schema is an ordinary struct. Nested structs are groups;
// their field names become segments of the derived environment variable
// name, upper-cased and underscore-joined under the application prefix:
//
//	type Config struct {
//	    DB struct {
//	        Host string                      // APP_DB_HOST, required
//	        Port int    `default:"5432"`     // APP_DB_PORT, defaults to 5432
//	    }
//	    Token environ.Secret `secret:"vault"` // resolved by the "vault" provider
//	}
//
//	cfg, err := environ.Load[Config](
//	    environ.WithPrefix("APP"),
//	    environ.WithProvider("vault", environ.NewVaultEnvSecrets("SECRET")),
//	)
//
// # Struct Tags
//
//   - `env:"NAME"`: explicit external name, used verbatim with no prefix
//     and no case transformation
//   - `default:"value"`: fallback when the variable is not set; a field
//     without a default tag is required and Load fails with
//     *MissingValueError (or *MissingSecretError for provider-backed
//     fields) carrying the probed key
//   - `required:"true"`: marks the field required even if a default tag
//     is present
//   - `secret:"name"`: resolve through the provider registered under name
//   - `section:"name"`: override an INI provider's section for this field
//   - `help:"text"`: documentation surfaced by Settings
//
// # Source Providers
//
// Fields without a secret tag resolve against the environment map (the
// process environment by default, or WithEnvironment). Two secret providers
// are built in: INISecrets reads a section of an INI file, parsed at most
// once per provider instance and optionally located through an environment
// variable holding the path; VaultEnvSecrets reads environment variables
// under its own prefix, which may be computed from the environment at lookup
// time. Any type implementing Provider can be registered the same way.
//
// Providers log the keys they probe at debug level through the Loader's
// slog.Logger.
//
// # Secrets and Redaction
//
// Declare sensitive fields with the Secret string type. A Secret compares,
// concatenates, and prints as its underlying string; only PrettyString, the
// whole-instance rendering, substitutes "<SECRET>" for it (and masks
// passwords inside url.URL values). Rendering a Secret field on its own
// reveals the value.
//
// # Conversion
//
// Raw values convert to the field's type: basic kinds, comma-separated
// slices, time.Duration, time.Time, slog.Level, url.URL, net.IP,
// mail.Address, big.Int, decimal.Decimal, uuid.UUID, resource.Quantity,
// RSA/ECDSA private keys from PEM, compiled expr programs (*vm.Program), and
// any encoding.TextUnmarshaler. RegisterConverter and
// RegisterConverterFactory extend the set. Conversion failures abort Load
// and propagate unchanged apart from field context.
//
// Resolution is a pure map over independent leaves: fields are resolved in
// declaration order, fail-fast, and no field depends on another's value.
package environ
