package environ

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbConfig struct {
	Host string
	Port int `default:"5432"`
}

type appConfig struct {
	DB dbConfig
}

func TestLoadEndToEnd(t *testing.T) {
	cfg, err := Load[appConfig](
		WithPrefix("APP"),
		WithEnvironment(Environment{"APP_DB_HOST": "localhost"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load[appConfig](
		WithPrefix("APP"),
		WithEnvironment(Environment{}),
	)
	var missing *MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "APP_DB_HOST", missing.Key)
	assert.Contains(t, err.Error(), "APP_DB_HOST")
}

func TestLoadDefaults(t *testing.T) {
	type config struct {
		Name    string        `default:"myapp"`
		Debug   bool          `default:"true"`
		Workers int           `default:"4"`
		Ratio   float64       `default:"0.5"`
		Timeout time.Duration `default:"30s"`
		Tags    []string      `default:"web,api"`
		Empty   string        `default:""`
	}

	cfg, err := Load[config](WithEnvironment(Environment{}))
	require.NoError(t, err)

	assert.Equal(t, "myapp", cfg.Name)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 0.5, cfg.Ratio)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"web", "api"}, cfg.Tags)
	assert.Equal(t, "", cfg.Empty)
}

func TestEnvironmentOverridesDefault(t *testing.T) {
	type config struct {
		Port int `default:"8080"`
	}

	cfg, err := Load[config](WithEnvironment(Environment{"PORT": "9000"}))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
}

func TestDeriveEnvName(t *testing.T) {
	cases := []struct {
		prefix string
		path   []string
		name   string
		want   string
	}{
		{"APP", []string{"DB"}, "Host", "APP_DB_HOST"},
		{"APP", []string{"Outer", "Inner"}, "APIKey", "APP_OUTER_INNER_API_KEY"},
		{"", nil, "Port", "PORT"},
		{"", []string{"Server"}, "DBHost", "SERVER_DB_HOST"},
		{"app", nil, "LogLevel", "APP_LOG_LEVEL"},
	}
	for _, c := range cases {
		got := deriveEnvName(c.prefix, c.path, c.name)
		if got != c.want {
			t.Errorf("deriveEnvName(%q, %v, %q) = %q; want %q", c.prefix, c.path, c.name, got, c.want)
		}
	}
}

func TestExplicitNameOverride(t *testing.T) {
	type config struct {
		Nested struct {
			Value string `env:"weird_name"`
		}
	}

	// The explicit name is used verbatim: no prefix, no upper-casing, even
	// at depth.
	cfg, err := Load[config](
		WithPrefix("APP"),
		WithEnvironment(Environment{
			"weird_name":       "explicit",
			"APP_NESTED_VALUE": "derived",
			"WEIRD_NAME":       "derived",
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Nested.Value)
}

func TestEmptyDefaultIsNotRequired(t *testing.T) {
	type config struct {
		Optional string `default:""`
	}

	_, err := Load[config](WithEnvironment(Environment{}))
	assert.NoError(t, err)
}

func TestRequiredTagWinsOverDefault(t *testing.T) {
	type config struct {
		Token string `default:"fallback" required:"true"`
	}

	_, err := Load[config](WithEnvironment(Environment{}))
	var missing *MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "TOKEN", missing.Key)
}

func TestFailFastInDeclarationOrder(t *testing.T) {
	type config struct {
		First  string
		Second string
	}

	// Both fields are missing; resolution aborts on the first one declared.
	_, err := Load[config](WithEnvironment(Environment{}))
	var missing *MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "FIRST", missing.Key)
}

func TestPointerGroupAllocated(t *testing.T) {
	type config struct {
		DB *dbConfig
	}

	cfg, err := Load[config](
		WithPrefix("APP"),
		WithEnvironment(Environment{"APP_DB_HOST": "db.internal"}),
	)
	require.NoError(t, err)
	require.NotNil(t, cfg.DB)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestUnknownProvider(t *testing.T) {
	type config struct {
		Token Secret `secret:"nope"`
	}

	_, err := Load[config](WithEnvironment(Environment{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestLoadTargetMustBeStructPointer(t *testing.T) {
	var n int
	assert.Error(t, New().Load(&n))
	assert.Error(t, New().Load(appConfig{}))
}

func TestConversionErrorCarriesFieldPath(t *testing.T) {
	_, err := Load[appConfig](
		WithPrefix("APP"),
		WithEnvironment(Environment{
			"APP_DB_HOST": "localhost",
			"APP_DB_PORT": "not-a-number",
		}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB.Port")
}

func TestOSEnvironmentIsDefaultSource(t *testing.T) {
	t.Setenv("ENVIRON_TEST_VALUE", "from-process")

	type config struct {
		Value string `env:"ENVIRON_TEST_VALUE"`
	}

	cfg, err := Load[config]()
	require.NoError(t, err)
	assert.Equal(t, "from-process", cfg.Value)
}

func TestWithDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DOTENV_ONLY=from-file\nDOTENV_SHADOWED=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	type config struct {
		Only     string `env:"DOTENV_ONLY"`
		Shadowed string `env:"DOTENV_SHADOWED"`
	}

	cfg, err := Load[config](
		WithEnvironment(Environment{"DOTENV_SHADOWED": "from-env"}),
		WithDotenv(path),
	)
	require.NoError(t, err)

	// Real environment variables keep precedence over file values.
	assert.Equal(t, "from-file", cfg.Only)
	assert.Equal(t, "from-env", cfg.Shadowed)
}

func TestWithDotenvMissingFileIgnored(t *testing.T) {
	type config struct {
		Port int `default:"8080"`
	}

	cfg, err := Load[config](
		WithEnvironment(Environment{}),
		WithDotenv(filepath.Join(t.TempDir(), "does-not-exist.env")),
	)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestWithDotenvDoesNotMutateCallerEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INJECTED=yes\n"), 0o644))

	env := Environment{}
	type config struct {
		Injected string `env:"INJECTED" default:""`
	}

	_, err := Load[config](WithEnvironment(env), WithDotenv(path))
	require.NoError(t, err)
	assert.Empty(t, env)
}
