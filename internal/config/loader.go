package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ocbridge/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/ocbridge"
	configFileName = "config.yaml"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// Load builds the effective configuration: defaults, then config.yaml in
// configPath, then the process environment (after .env and AWS Secrets
// Manager have been merged into it).
func Load(configPath string) (Config, error) {
	LoadEnv(".env")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration from a single specified directory.
// A missing config.yaml is not an error; the defaults are returned.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// ApplyEnv overlays non-empty environment variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	oc := &cfg.OperationsCenter
	str(EnvClientID, &oc.ClientID)
	str(EnvClientSecret, &oc.ClientSecret)
	str(EnvWellKnown, &oc.WellKnownURL)
	str(EnvCallbackURL, &oc.RedirectURI)
	str(EnvScopes, &oc.Scope)
	str(EnvState, &oc.State)
	str(EnvEquipmentURL, &oc.EquipmentURL)

	str("OCBRIDGE_LISTEN_ADDR", &cfg.Server.ListenAddr)
	str("OCBRIDGE_PUBLIC_URL", &cfg.Server.PublicURL)
	str("OCBRIDGE_LOCAL_LOGIN_URL", &cfg.Server.LocalLoginURL)
	str("OCBRIDGE_BRIDGE_ADDR", &cfg.Bridge.Addr)
	str("OCBRIDGE_SESSION_SECRET", &cfg.Session.Secret)
	str("REDIS_URL", &cfg.Session.RedisURL)

	if v, ok := lookup("OCBRIDGE_SESSION_BACKEND"); ok && v != "" {
		cfg.Session.Backend = SessionBackend(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup("OCBRIDGE_BRIDGE_ENABLED"); ok && v != "" {
		cfg.Bridge.Enabled = parseBool(v)
	}
	if v, ok := lookup("OCBRIDGE_REQUIRE_LOCAL_LOGIN"); ok && v != "" {
		cfg.Server.RequireLocalLogin = parseBool(v)
	}
	if v, ok := lookup("OCBRIDGE_SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing OCBRIDGE_SESSION_TTL: %w", err)
		}
		cfg.Session.TTL = d
	}

	return nil
}

// parseBool treats everything except "false" and "0" as true.
func parseBool(v string) bool {
	v = strings.TrimSpace(v)
	return !strings.EqualFold(v, "false") && v != "0"
}
