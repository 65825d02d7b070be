package environ

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsDB struct {
	Host string `help:"database host"`
	Port int    `default:"5432"`
}

type settingsConfig struct {
	Name    string        `env:"SERVICE_NAME" default:"svc"`
	Timeout time.Duration `default:"30s"`
	APIKey  Secret        `secret:"ini" section:"keys"`
	DB      settingsDB
	Standby *settingsDB
}

func TestSettings(t *testing.T) {
	settings := Settings(settingsConfig{}, WithPrefix("APP"))

	byPath := make(map[string]FieldSetting, len(settings))
	for _, s := range settings {
		byPath[s.Path] = s
	}

	wantPaths := []string{
		"Name", "Timeout", "APIKey",
		"DB.Host", "DB.Port",
		"Standby.Host", "Standby.Port",
	}
	require.Len(t, settings, len(wantPaths))
	for _, p := range wantPaths {
		require.Contains(t, byPath, p)
	}

	name := byPath["Name"]
	assert.Equal(t, "SERVICE_NAME", name.Key)
	assert.Equal(t, "svc", name.Default)
	assert.False(t, name.Required)

	timeout := byPath["Timeout"]
	assert.Equal(t, "APP_TIMEOUT", timeout.Key)
	assert.True(t, timeout.HasDefault)

	host := byPath["DB.Host"]
	assert.Equal(t, "APP_DB_HOST", host.Key)
	assert.True(t, host.Required)
	assert.Equal(t, "database host", host.Help)

	apiKey := byPath["APIKey"]
	assert.Equal(t, "api_key", apiKey.Key)
	assert.True(t, apiKey.Secret)
	assert.Equal(t, "ini", apiKey.Provider)
	assert.Equal(t, "keys", apiKey.Section)
	assert.Equal(t, "environ.Secret", apiKey.Type)
}

func TestSecretAndRequiredFilters(t *testing.T) {
	secrets := SecretFields(settingsConfig{}, WithPrefix("APP"))
	require.Len(t, secrets, 1)
	assert.Equal(t, "APIKey", secrets[0].FieldName)

	required := RequiredFields(settingsConfig{}, WithPrefix("APP"))
	paths := make([]string, 0, len(required))
	for _, s := range required {
		paths = append(paths, s.Path)
	}
	assert.ElementsMatch(t, []string{"APIKey", "DB.Host", "Standby.Host"}, paths)
}
