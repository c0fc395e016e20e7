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

package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/dingtalk/internal/config"
	internallog "github.com/tombee/dingtalk/internal/log"
	"github.com/tombee/dingtalk/internal/tracing"
	"github.com/tombee/dingtalk/pkg/credential"
	"github.com/tombee/dingtalk/pkg/httpclient"
	"github.com/tombee/dingtalk/sdk"
)

// LoadConfig loads the configuration named by --config and applies the
// global flag overrides.
func LoadConfig() (*config.Config, error) {
	return loadConfig(config.Load)
}

// LoadConfigOrInit is LoadConfig for commands that create the file.
func LoadConfigOrInit() (*config.Config, error) {
	return loadConfig(config.LoadOrInit)
}

func loadConfig(load func(string) (*config.Config, error)) (*config.Config, error) {
	cfg, err := load(GetConfigPath())
	if err != nil {
		return nil, err
	}

	changed := false
	if t := strings.ToLower(storeFlag); t != "" && t != cfg.Store.Type {
		cfg.Store.Type = t
		cfg.Store.Path = defaultStorePath(t)
		changed = true
	}
	if traceExporterFlag != "" {
		cfg.Tracing.Exporter = strings.ToLower(traceExporterFlag)
		changed = true
	}
	if changed {
		if err := cfg.Validate(); err != nil {
			return nil, NewUsageError("invalid flag value", err)
		}
	}
	return cfg, nil
}

func defaultStorePath(storeType string) string {
	switch credential.Type(storeType) {
	case credential.TypeFile:
		return filepath.Join(config.DataDir(), "credentials.enc")
	case credential.TypeSQLite:
		return filepath.Join(config.DataDir(), "credentials.db")
	}
	return ""
}

// NewLogger builds the CLI logger. --verbose forces debug, --quiet limits
// output to errors.
func NewLogger(cfg *config.Config) *slog.Logger {
	lc := &internallog.Config{
		Level:     cfg.Log.Level,
		Format:    internallog.Format(cfg.Log.Format),
		Output:    os.Stderr,
		AddSource: cfg.Log.AddSource,
	}
	if os.Getenv(internallog.EnvDebug) != "" {
		lc = internallog.FromEnv()
	}
	switch {
	case GetVerbose():
		lc.Level = "debug"
	case GetQuiet():
		lc.Level = "error"
	}
	return internallog.New(lc)
}

// Env is everything a command that talks to DingTalk needs.
type Env struct {
	Config    *config.Config
	Logger    *slog.Logger
	Client    *sdk.Client
	Telemetry *tracing.Provider
}

// NewEnv loads configuration, resolves credentials and builds a client with
// the configured store, transport and telemetry.
func NewEnv(ctx context.Context) (*Env, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return NewEnvFromConfig(ctx, cfg)
}

// NewEnvFromConfig builds an Env from an already resolved configuration.
func NewEnvFromConfig(ctx context.Context, cfg *config.Config) (*Env, error) {
	logger := NewLogger(cfg)

	v, _, _ := GetVersion()
	telemetry, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    "dingtalk",
		ServiceVersion: v,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, NewConfigError("failed to set up tracing", err)
	}

	store, closer, err := credential.New(credential.Config{
		Type:  credential.Type(cfg.Store.Type),
		Path:  cfg.Store.Path,
		Watch: cfg.Store.Watch,
		Redis: &credential.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.Prefix,
		},
		Logger: logger,
	})
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, NewConfigError(fmt.Sprintf("failed to open %s credential store", cfg.Store.Type), err)
	}

	transport := httpclient.DefaultConfig()
	transport.Timeout = cfg.API.Timeout
	transport.KeepAlive = cfg.API.KeepAliveEnabled()
	transport.MaxSockets = cfg.API.MaxSockets
	transport.RetryAttempts = cfg.API.RetryAttempts
	transport.UserAgent = "dingtalk-cli/" + v
	transport.Logger = logger

	opts := []sdk.Option{
		sdk.WithCredentials(cfg.App.Key, cfg.App.Secret),
		sdk.WithHost(cfg.API.Host),
		sdk.WithCorpID(cfg.App.CorpID),
		sdk.WithAgentID(cfg.App.AgentID),
		sdk.WithSSO(cfg.App.SSO),
		sdk.WithTransport(transport),
		sdk.WithStore(store),
		sdk.WithCloser(closer),
		sdk.WithLogger(logger),
		sdk.WithRefreshDedup(true),
		sdk.WithTracerProvider(telemetry.TracerProvider),
		sdk.WithMeterProvider(telemetry.MeterProvider),
	}
	if cfg.API.Proxy != "" {
		opts = append(opts, sdk.WithProxy(cfg.API.Proxy, cfg.API.ProxyPaths...))
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, sdk.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst))
	}

	client, err := sdk.New(opts...)
	if err != nil {
		_ = closer.Close()
		_ = telemetry.Shutdown(ctx)
		return nil, err
	}

	return &Env{Config: cfg, Logger: logger, Client: client, Telemetry: telemetry}, nil
}

// Close releases the client and flushes telemetry.
func (e *Env) Close(ctx context.Context) error {
	return errors.Join(e.Client.Close(), e.Telemetry.Shutdown(ctx))
}
