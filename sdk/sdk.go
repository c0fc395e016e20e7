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

package sdk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	internallog "github.com/tombee/dingtalk/internal/log"
	"github.com/tombee/dingtalk/pkg/credential"
	"github.com/tombee/dingtalk/pkg/httpclient"
)

// DefaultHost is the DingTalk open platform API host.
const DefaultHost = "https://oapi.dingtalk.com"

const instrumentationName = "github.com/tombee/dingtalk/sdk"

// Client calls the DingTalk API. It is safe for concurrent use. Each Client
// owns its own configuration and, unless WithStore is used, its own tokens.
type Client struct {
	appKey    string
	appSecret string
	corpID    string
	agentID   string
	sso       bool

	// snsAppID/snsAppSecret sign the code-exchange login; default to the app credentials.
	snsAppID     string
	snsAppSecret string

	host        string
	proxy       string
	proxyPaths  []string
	noncePrefix string

	httpClient     *http.Client
	httpConfig     httpclient.Config
	rateLimit      float64
	rateBurst      int
	store          credential.Store
	logger         *slog.Logger
	now            func() time.Time
	dedup          bool
	flight         singleflight.Group
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer      trace.Tracer
	instruments *instruments

	closeMu sync.Mutex
	closers []io.Closer
	closed  bool
}

// New creates a Client. WithCredentials is required.
//
// Example:
//
//	c, err := sdk.New(
//		sdk.WithCredentials(appKey, appSecret),
//		sdk.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
func New(opts ...Option) (*Client, error) {
	c := &Client{
		host:        DefaultHost,
		proxyPaths:  []string{"**"},
		httpConfig:  httpclient.DefaultConfig(),
		logger:      slog.Default(),
		now:         time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if c.appKey == "" || c.appSecret == "" {
		return nil, ErrMissingCredentials
	}
	if c.sso && c.corpID == "" {
		return nil, &ValidationError{
			Field:      "corp_id",
			Message:    "SSO mode requires a corp ID",
			Suggestion: "use WithCorpID",
		}
	}
	if c.noncePrefix == "" {
		c.noncePrefix = c.appKey
	}
	c.logger = internallog.WithComponent(internallog.WithApp(c.logger, c.appKey), "dingtalk")

	if c.snsAppID == "" {
		c.snsAppID, c.snsAppSecret = c.appKey, c.appSecret
	}

	if err := c.initHTTPClient(); err != nil {
		return nil, err
	}

	if c.store == nil {
		c.logger.Warn("no credential store configured, using in-memory store; " +
			"tokens are not shared between processes and are lost on exit. " +
			"Do not use this in production")
		c.store = credential.NewMemoryStore()
	}

	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	if c.meterProvider == nil {
		c.meterProvider = otel.GetMeterProvider()
	}
	c.tracer = c.tracerProvider.Tracer(instrumentationName)

	inst, err := newInstruments(c.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	c.instruments = inst

	return c, nil
}

func (c *Client) initHTTPClient() error {
	if c.httpClient == nil {
		cfg := c.httpConfig
		if cfg.Logger == nil {
			cfg.Logger = c.logger
		}
		if c.rateLimit > 0 {
			cfg.RateLimit, cfg.RateBurst = c.rateLimit, c.rateBurst
		}
		hc, err := httpclient.New(cfg)
		if err != nil {
			return &ValidationError{Field: "transport", Message: err.Error()}
		}
		c.httpClient = hc
		return nil
	}

	if c.rateLimit > 0 {
		hc := *c.httpClient
		hc.Transport = httpclient.RateLimited(hc.Transport, c.rateLimit, c.rateBurst)
		c.httpClient = &hc
	}
	return nil
}

// AppKey returns the configured application key.
func (c *Client) AppKey() string {
	return c.appKey
}

// CorpID returns the configured corp ID, if any.
func (c *Client) CorpID() string {
	return c.corpID
}

// Store returns the credential store backing the client.
func (c *Client) Store() credential.Store {
	return c.store
}

// credentialApp scopes store keys. SSO tokens belong to the corp, not the app.
func (c *Client) credentialApp() string {
	if c.sso {
		return "sso:" + c.corpID
	}
	return c.appKey
}

// Close releases resources registered with WithCloser. Close is safe to call
// multiple times.
func (c *Client) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.httpClient.CloseIdleConnections()
	return errors.Join(errs...)
}

func (c *Client) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

func parseBaseURL(field, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &ValidationError{
			Field:      field,
			Message:    fmt.Sprintf("invalid URL %q", raw),
			Suggestion: "use an absolute URL such as https://oapi.dingtalk.com",
		}
	}
	return u.Scheme + "://" + u.Host + trimSlash(u.Path), nil
}

func trimSlash(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
