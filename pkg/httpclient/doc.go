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

// Package httpclient builds the *http.Client used to talk to the DingTalk
// open platform.
//
// Create a client with default settings:
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
// Pooling options:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.KeepAlive = false    // one connection per request
//	cfg.MaxSockets = 20      // cap concurrent connections per host
//	cfg.Timeout = 5 * time.Second
//
// # Retry Behavior
//
// Retries are off by default (RetryAttempts = 0). The DingTalk envelope carries
// application errors inside 200 responses, so retry policy belongs to the
// caller. When enabled, only transport failures and 408/429/5xx responses on
// idempotent methods are retried, with exponential backoff and jitter.
//
// # Rate Limiting
//
// RateLimit sets a client-side token bucket (golang.org/x/time/rate) in
// requests per second. Requests wait for a token or for their context to end.
//
// # Security
//
// Sensitive query parameters (access_token, appsecret, corpsecret, signature,
// ticket and anything containing key/secret/token) are redacted from logs.
//
// # Observability
//
// Requests are logged via log/slog: debug for success, warn for 4xx/5xx and
// transport failures. Correlation IDs found in the request context are sent
// as X-Correlation-ID.
package httpclient
