// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the CLI configuration: a YAML file, defaults and
// DINGTALK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/dingtalk/pkg/credential"
	pkgerrors "github.com/tombee/dingtalk/pkg/errors"
)

// ErrNoCredentials is returned by RequireCredentials.
var ErrNoCredentials = errors.New("config: app key and secret are not configured")

// DefaultHost is the DingTalk open platform API host.
const DefaultHost = "https://oapi.dingtalk.com"

// KeychainPrefix marks a secret held in the OS keychain. "keychain:" alone
// uses SecretName(app.key); "keychain:<name>" names the entry.
const KeychainPrefix = "keychain:"

// Config represents the complete CLI configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// AppConfig identifies the DingTalk application.
type AppConfig struct {
	// Key is the app key (appkey).
	// Environment: DINGTALK_APP_KEY
	Key string `yaml:"key"`

	// Secret is the app secret, or "keychain:" to read it from the keychain.
	// Environment: DINGTALK_APP_SECRET
	Secret string `yaml:"secret,omitempty"`

	// Environment: DINGTALK_CORP_ID
	CorpID string `yaml:"corp_id,omitempty"`

	// Environment: DINGTALK_AGENT_ID
	AgentID string `yaml:"agent_id,omitempty"`

	// SSO issues tokens from /sso/gettoken. Requires CorpID.
	// Environment: DINGTALK_SSO
	SSO bool `yaml:"sso,omitempty"`
}

// APIConfig configures the HTTP side of the client.
type APIConfig struct {
	// Environment: DINGTALK_HOST
	Host string `yaml:"host"`

	// Proxy replaces Host for paths matching ProxyPaths (default: all).
	// Environment: DINGTALK_PROXY
	Proxy      string   `yaml:"proxy,omitempty"`
	ProxyPaths []string `yaml:"proxy_paths,omitempty"`

	// Environment: DINGTALK_TIMEOUT
	Timeout time.Duration `yaml:"timeout"`

	// KeepAlive defaults to true.
	KeepAlive *bool `yaml:"keep_alive,omitempty"`

	MaxSockets int `yaml:"max_sockets,omitempty"`

	// RateLimit in requests per second (0 = unlimited).
	// Environment: DINGTALK_RATE_LIMIT
	RateLimit float64 `yaml:"rate_limit,omitempty"`
	RateBurst int     `yaml:"rate_burst,omitempty"`

	RetryAttempts int `yaml:"retry_attempts,omitempty"`
}

// KeepAliveEnabled reports the effective keep-alive setting.
func (a APIConfig) KeepAliveEnabled() bool {
	return a.KeepAlive == nil || *a.KeepAlive
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	// Type is memory, file, sqlite, redis or keychain.
	// Environment: DINGTALK_STORE
	Type string `yaml:"type"`

	// Path is used by the file and sqlite backends.
	Path string `yaml:"path,omitempty"`

	// Watch invalidates the file backend cache on external writes.
	Watch bool `yaml:"watch,omitempty"`

	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Environment: DINGTALK_REDIS_ADDR
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Environment: DINGTALK_LOG_LEVEL
	Level string `yaml:"level"`

	// Environment: DINGTALK_LOG_FORMAT
	Format string `yaml:"format"`

	AddSource bool `yaml:"add_source,omitempty"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	// Exporter is none, stdout, otlp-http or otlp-grpc.
	// Environment: DINGTALK_TRACE_EXPORTER
	Exporter string `yaml:"exporter"`

	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host:    DefaultHost,
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Type: string(credential.TypeSQLite),
			Path: filepath.Join(DataDir(), "credentials.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
	}
}

// Load loads configuration from the YAML file at configPath, applies
// defaults and environment overrides, and validates the result.
//
// An empty configPath falls back to $DINGTALK_CONFIG and then to the default
// path; a missing default file is not an error.
func Load(configPath string) (*Config, error) {
	return load(configPath, false)
}

// LoadOrInit is Load, except that a missing file is never an error. It is
// used when the file is about to be written.
func LoadOrInit(configPath string) (*Config, error) {
	return load(configPath, true)
}

func load(configPath string, allowMissing bool) (*Config, error) {
	cfg := Default()

	explicit := !allowMissing
	if configPath == "" {
		configPath = os.Getenv("DINGTALK_CONFIG")
	}
	if configPath == "" {
		explicit = false
		p, err := ConfigPath()
		if err == nil {
			configPath = p
		}
	}

	if configPath != "" {
		err := cfg.loadFromFile(configPath)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return nil, &pkgerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &pkgerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// applyDefaults fills in zero values left by a partial file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.API.Host == "" {
		c.API.Host = defaults.API.Host
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Store.Type == "" {
		c.Store.Type = defaults.Store.Type
	}
	if c.Store.Path == "" && (c.Store.Type == string(credential.TypeSQLite) || c.Store.Type == string(credential.TypeFile)) {
		name := "credentials.db"
		if c.Store.Type == string(credential.TypeFile) {
			name = "credentials.enc"
		}
		c.Store.Path = filepath.Join(DataDir(), name)
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	setString := func(env string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}

	setString("DINGTALK_APP_KEY", &c.App.Key)
	setString("DINGTALK_APP_SECRET", &c.App.Secret)
	setString("DINGTALK_CORP_ID", &c.App.CorpID)
	setString("DINGTALK_AGENT_ID", &c.App.AgentID)
	if val := os.Getenv("DINGTALK_SSO"); val != "" {
		c.App.SSO = val == "1" || strings.ToLower(val) == "true"
	}

	setString("DINGTALK_HOST", &c.API.Host)
	setString("DINGTALK_PROXY", &c.API.Proxy)
	if val := os.Getenv("DINGTALK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.API.Timeout = d
		}
	}
	if val := os.Getenv("DINGTALK_RATE_LIMIT"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil {
			c.API.RateLimit = rps
		}
	}

	if val := strings.ToLower(os.Getenv("DINGTALK_STORE")); val != "" && val != c.Store.Type {
		c.Store.Type = val
		c.Store.Path = ""
		c.applyDefaults()
	}
	setString("DINGTALK_REDIS_ADDR", &c.Store.Redis.Addr)

	if val := os.Getenv("DINGTALK_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("DINGTALK_LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}

	if val := os.Getenv("DINGTALK_TRACE_EXPORTER"); val != "" {
		c.Tracing.Exporter = strings.ToLower(val)
	}
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
}

// Validate checks that the configuration is valid. Credentials are checked
// separately by RequireCredentials so that offline commands work without them.
func (c *Config) Validate() error {
	var errs []string

	if c.App.SSO && c.App.CorpID == "" {
		errs = append(errs, "app.corp_id is required when app.sso is enabled")
	}

	if !isAbsoluteURL(c.API.Host) {
		errs = append(errs, fmt.Sprintf("api.host must be an absolute URL, got %q", c.API.Host))
	}
	if c.API.Proxy != "" && !isAbsoluteURL(c.API.Proxy) {
		errs = append(errs, fmt.Sprintf("api.proxy must be an absolute URL, got %q", c.API.Proxy))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("api.timeout must be positive, got %v", c.API.Timeout))
	}
	if c.API.MaxSockets < 0 {
		errs = append(errs, fmt.Sprintf("api.max_sockets must be >= 0, got %d", c.API.MaxSockets))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("api.rate_limit must be >= 0, got %v", c.API.RateLimit))
	}
	if c.API.RetryAttempts < 0 {
		errs = append(errs, fmt.Sprintf("api.retry_attempts must be >= 0, got %d", c.API.RetryAttempts))
	}

	switch credential.Type(c.Store.Type) {
	case credential.TypeMemory, credential.TypeKeychain:
	case credential.TypeFile, credential.TypeSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Sprintf("store.path is required for the %s store", c.Store.Type))
		}
	case credential.TypeRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, "store.redis.addr is required for the redis store")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.type must be one of [memory, file, sqlite, redis, keychain], got %q", c.Store.Type))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	validExporters := map[string]bool{"none": true, "stdout": true, "otlp-http": true, "otlp-grpc": true}
	if !validExporters[c.Tracing.Exporter] {
		errs = append(errs, fmt.Sprintf("tracing.exporter must be one of [none, stdout, otlp-http, otlp-grpc], got %q", c.Tracing.Exporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// RequireCredentials resolves keychain references and checks that an app
// key and secret are available.
func (c *Config) RequireCredentials() error {
	if c.App.Key == "" || c.App.Secret == "" {
		return &pkgerrors.ConfigError{
			Key:    "app",
			Reason: "app key and secret are required (run 'dingtalk configure' or set DINGTALK_APP_KEY and DINGTALK_APP_SECRET)",
			Cause:  ErrNoCredentials,
		}
	}
	return c.ResolveSecrets()
}

// ResolveSecrets replaces a keychain reference in app.secret with its value.
func (c *Config) ResolveSecrets() error {
	name, ok := strings.CutPrefix(c.App.Secret, KeychainPrefix)
	if !ok {
		return nil
	}
	if name == "" {
		name = SecretName(c.App.Key)
	}
	secret, err := credential.GetSecret(name)
	if err != nil {
		return &pkgerrors.ConfigError{
			Key:    "app.secret",
			Reason: fmt.Sprintf("failed to read %q from the keychain", name),
			Cause:  err,
		}
	}
	c.App.Secret = secret
	return nil
}

// SecretName is the default keychain entry for an app secret.
func SecretName(appKey string) string {
	return "app_secret/" + appKey
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
