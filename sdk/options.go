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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/dingtalk/pkg/credential"
	"github.com/tombee/dingtalk/pkg/httpclient"
)

// Option configures a Client.
type Option func(*Client) error

// WithCredentials sets the application key and secret used to obtain access
// tokens. In SSO mode the secret is sent as corpsecret.
func WithCredentials(appKey, appSecret string) Option {
	return func(c *Client) error {
		if appKey == "" || appSecret == "" {
			return ErrMissingCredentials
		}
		c.appKey = appKey
		c.appSecret = appSecret
		return nil
	}
}

// WithHost overrides the API host (default: https://oapi.dingtalk.com).
func WithHost(host string) Option {
	return func(c *Client) error {
		base, err := parseBaseURL("host", host)
		if err != nil {
			return err
		}
		c.host = base
		return nil
	}
}

// WithProxy sends requests to proxy instead of the API host. Patterns are
// doublestar globs matched against the request path without its leading
// slash ("user/**", "message/*"); with no patterns every request is proxied.
//
// Example:
//
//	sdk.WithProxy("http://gateway.internal:8080", "topapi/**", "message/**")
func WithProxy(proxy string, patterns ...string) Option {
	return func(c *Client) error {
		base, err := parseBaseURL("proxy", proxy)
		if err != nil {
			return err
		}
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return &ValidationError{Field: "proxy_paths", Message: fmt.Sprintf("invalid pattern %q", p)}
			}
		}
		c.proxy = base
		if len(patterns) > 0 {
			c.proxyPaths = patterns
		}
		return nil
	}
}

// WithCorpID sets the corp ID returned in JSAPI configs and used for SSO.
func WithCorpID(corpID string) Option {
	return func(c *Client) error {
		c.corpID = corpID
		return nil
	}
}

// WithAgentID sets the micro-app agent ID returned in JSAPI configs.
func WithAgentID(agentID string) Option {
	return func(c *Client) error {
		c.agentID = agentID
		return nil
	}
}

// WithSSO switches token issuance to /sso/gettoken. Requires WithCorpID.
func WithSSO(enabled bool) Option {
	return func(c *Client) error {
		c.sso = enabled
		return nil
	}
}

// WithSNSApp sets the login app used by GetUserInfoByCode and QRConnectURL.
// Defaults to the credentials from WithCredentials.
func WithSNSApp(appID, appSecret string) Option {
	return func(c *Client) error {
		if appID == "" || appSecret == "" {
			return &ValidationError{Field: "sns_app", Message: "app id and secret cannot be empty"}
		}
		c.snsAppID, c.snsAppSecret = appID, appSecret
		return nil
	}
}

// WithHTTPClient uses a caller-built HTTP client. WithTransport is ignored
// when this is set.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithTransport configures the built-in HTTP client: keep-alive, timeout,
// max sockets per host.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.KeepAlive = false
//	cfg.MaxSockets = 10
//	sdk.WithTransport(cfg)
func WithTransport(cfg httpclient.Config) Option {
	return func(c *Client) error {
		if err := cfg.Validate(); err != nil {
			return &ValidationError{Field: "transport", Message: err.Error()}
		}
		c.httpConfig = cfg
		return nil
	}
}

// WithRateLimit caps outbound requests at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			return &ValidationError{Field: "rate_limit", Message: "must be > 0"}
		}
		c.rateLimit, c.rateBurst = rps, burst
		return nil
	}
}

// WithStore persists tokens and tickets in store instead of process memory.
func WithStore(store credential.Store) Option {
	return func(c *Client) error {
		if store == nil {
			return fmt.Errorf("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithCloser registers a resource released by Client.Close, such as the
// closer returned by credential.New.
func WithCloser(closer io.Closer) Option {
	return func(c *Client) error {
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
		return nil
	}
}

// WithLogger sets a custom structured logger. If not set, logs go to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithRefreshDedup makes concurrent callers share one in-flight refresh per
// credential instead of each fetching their own.
func WithRefreshDedup(enabled bool) Option {
	return func(c *Client) error {
		c.dedup = enabled
		return nil
	}
}

// WithNoncePrefix sets the prefix of generated JSAPI nonces (default: the app key).
func WithNoncePrefix(prefix string) Option {
	return func(c *Client) error {
		if prefix == "" {
			return fmt.Errorf("nonce prefix cannot be empty")
		}
		c.noncePrefix = prefix
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) error {
		if tp == nil {
			return fmt.Errorf("tracer provider cannot be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider. Defaults to the
// global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) error {
		if mp == nil {
			return fmt.Errorf("meter provider cannot be nil")
		}
		c.meterProvider = mp
		return nil
	}
}

// WithClock replaces time.Now for expiry bookkeeping and signing timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}
