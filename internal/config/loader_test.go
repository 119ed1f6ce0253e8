package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	tempFilePath := filepath.Join(dir, configFileName)
	err := os.WriteFile(tempFilePath, []byte(content), 0644)
	require.NoError(t, err)
	return tempFilePath
}

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	createTempConfigFile(t, tempDir, `
operationsCenter:
  clientId: file-client
  wellKnownUrl: https://idp.example.com/.well-known/oauth-authorization-server
server:
  listenAddr: 0.0.0.0:8000
session:
  backend: redis
  redisUrl: redis://localhost:6379/1
timeouts:
  resource: 45s
`)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "file-client", loaded.OperationsCenter.ClientID)
	assert.Equal(t, "https://idp.example.com/.well-known/oauth-authorization-server", loaded.OperationsCenter.WellKnownURL)
	assert.Equal(t, "0.0.0.0:8000", loaded.Server.ListenAddr)
	assert.Equal(t, SessionBackendRedis, loaded.Session.Backend)
	assert.Equal(t, 45*time.Second, loaded.Timeouts.Resource)

	// Untouched values keep their defaults
	assert.Equal(t, DefaultScope, loaded.OperationsCenter.Scope)
	assert.Equal(t, DefaultPublicURL, loaded.Server.PublicURL)
	assert.Equal(t, DefaultTokenTimeout, loaded.Timeouts.Token)
	assert.True(t, loaded.Bridge.Enabled)
}

func TestLoadConfig_Malformed(t *testing.T) {
	tempDir := t.TempDir()
	createTempConfigFile(t, tempDir, "server: [not, a, map")

	_, err := LoadConfig(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config from")
}

func TestLoadConfig_RoundTripsMarshalledDefaults(t *testing.T) {
	tempDir := t.TempDir()
	data, err := yaml.Marshal(GetDefaultConfig())
	require.NoError(t, err)
	createTempConfigFile(t, tempDir, string(data))

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestApplyEnv(t *testing.T) {
	cfg := GetDefaultConfig()
	err := ApplyEnv(&cfg, mapLookup(map[string]string{
		"OC_CLIENT_ID":                 "env-client",
		"OC_CLIENT_SECRET":             "env-secret",
		"OC_WELL_KNOWN":                "https://idp.example.com/wk",
		"OC_CALLBACK_URL":              "http://127.0.0.1:9090/callback",
		"OC_SCOPES":                    "  ",
		"OC_STATE":                     "custom-state",
		"OCBRIDGE_PUBLIC_URL":          "https://app.example.com",
		"OCBRIDGE_SESSION_BACKEND":     "Redis",
		"REDIS_URL":                    "redis://cache:6379/0",
		"OCBRIDGE_BRIDGE_ENABLED":      "false",
		"OCBRIDGE_SESSION_TTL":         "2h",
		"OCBRIDGE_LOCAL_LOGIN_URL":     "/login",
		"OCBRIDGE_REQUIRE_LOCAL_LOGIN": "true",
	}))
	require.NoError(t, err)

	oc := cfg.OperationsCenter
	assert.Equal(t, "env-client", oc.ClientID)
	assert.Equal(t, "env-secret", oc.ClientSecret)
	assert.Equal(t, "https://idp.example.com/wk", oc.WellKnownURL)
	assert.Equal(t, "http://127.0.0.1:9090/callback", oc.RedirectURI)
	assert.Equal(t, DefaultScope, oc.Scope, "blank values do not override")
	assert.Equal(t, "custom-state", oc.State)
	assert.Equal(t, "https://app.example.com", cfg.Server.PublicURL)
	assert.Equal(t, SessionBackendRedis, cfg.Session.Backend)
	assert.Equal(t, "redis://cache:6379/0", cfg.Session.RedisURL)
	assert.False(t, cfg.Bridge.Enabled)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "/login", cfg.Server.LocalLoginURL)
	assert.True(t, cfg.Server.RequireLocalLogin)
}

func TestApplyEnv_InvalidTTL(t *testing.T) {
	cfg := GetDefaultConfig()
	err := ApplyEnv(&cfg, mapLookup(map[string]string{"OCBRIDGE_SESSION_TTL": "forever"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCBRIDGE_SESSION_TTL")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	tempDir := t.TempDir()
	createTempConfigFile(t, tempDir, `
operationsCenter:
  clientId: file-client
`)
	t.Setenv("ENV_FILE_PATH", filepath.Join(tempDir, "missing.env"))
	t.Setenv("AWS_SECRETS_MANAGER_SECRET_ID", "")
	t.Setenv("OC_CLIENT_ID", "env-client")

	cfg, err := Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.OperationsCenter.ClientID)
}

func TestLoad_DotEnvFile(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("OC_EQUIPMENT_URL=https://sandbox.example.com/equipment\n"), 0600))

	t.Setenv("ENV_FILE_PATH", envPath)
	t.Setenv("AWS_SECRETS_MANAGER_SECRET_ID", "")
	// Registers cleanup for the variable godotenv is about to set.
	t.Setenv("OC_EQUIPMENT_URL", "")
	require.NoError(t, os.Unsetenv("OC_EQUIPMENT_URL"))

	cfg, err := Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.example.com/equipment", cfg.OperationsCenter.EquipmentURL)
}

func TestLoad_InvalidSettings(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("ENV_FILE_PATH", filepath.Join(tempDir, "missing.env"))
	t.Setenv("AWS_SECRETS_MANAGER_SECRET_ID", "")
	t.Setenv("OCBRIDGE_SESSION_BACKEND", "memcached")

	_, err := Load(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.backend")
}
