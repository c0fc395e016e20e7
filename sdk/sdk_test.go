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
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dingtalk/pkg/credential"
	"github.com/tombee/dingtalk/pkg/httpclient"
)

func TestNew(t *testing.T) {
	creds := WithCredentials("key", "secret")

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"credentials only", []Option{creds}, false},
		{"no credentials", nil, true},
		{"empty secret", []Option{WithCredentials("key", "")}, true},
		{"sso without corp", []Option{creds, WithSSO(true)}, true},
		{"sso with corp", []Option{creds, WithSSO(true), WithCorpID("c")}, false},
		{"relative host", []Option{creds, WithHost("oapi.dingtalk.com")}, true},
		{"bad proxy pattern", []Option{creds, WithProxy("http://gw", "user/[")}, true},
		{"zero rate limit", []Option{creds, WithRateLimit(0, 1)}, true},
		{"rate limit", []Option{creds, WithRateLimit(20, 5)}, false},
		{"nil logger", []Option{creds, WithLogger(nil)}, true},
		{"nil store", []Option{creds, WithStore(nil)}, true},
		{"nil http client", []Option{creds, WithHTTPClient(nil)}, true},
		{"nil clock", []Option{creds, WithClock(nil)}, true},
		{"empty nonce prefix", []Option{creds, WithNoncePrefix("")}, true},
		{"empty sns app", []Option{creds, WithSNSApp("", "")}, true},
		{"negative timeout", []Option{creds, WithTransport(httpclient.Config{Timeout: -time.Second})}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLogger(discardLogger())}, tt.opts...)
			c, err := New(opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, c.Close())
		})
	}
}

func TestNew_MissingCredentialsSentinel(t *testing.T) {
	_, err := New(WithLogger(discardLogger()))
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(WithCredentials("key", "secret"), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, DefaultHost, c.host)
	assert.Equal(t, "key", c.AppKey())
	assert.Equal(t, "key", c.snsAppID)
	assert.IsType(t, &credential.MemoryStore{}, c.Store())
	assert.False(t, c.dedup)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestClose_ReleasesInReverseOrder(t *testing.T) {
	var order []string
	errSecond := errors.New("second failed")
	c, err := New(
		WithCredentials("key", "secret"),
		WithLogger(discardLogger()),
		WithCloser(closerFunc(func() error { order = append(order, "first"); return nil })),
		WithCloser(closerFunc(func() error { order = append(order, "second"); return errSecond })),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Close(), errSecond)
	assert.Equal(t, []string{"second", "first"}, order)

	// Idempotent.
	assert.NoError(t, c.Close())
	assert.Len(t, order, 2)
}

func TestWithHTTPClient_RateLimited(t *testing.T) {
	fake := newFakeDingTalk(t)
	hc := &http.Client{Timeout: 5 * time.Second}
	c := newTestClient(t, fake, newFakeClock(), WithHTTPClient(hc), WithRateLimit(1000, 1))

	assert.NotSame(t, hc, c.httpClient)
	assert.NotNil(t, c.httpClient.Transport)
	assert.Nil(t, hc.Transport, "caller's client must not be mutated")

	_, err := c.AccessToken(context.Background())
	require.NoError(t, err)
}

func TestWithStore_Shared(t *testing.T) {
	fake := newFakeDingTalk(t)
	store := credential.NewMemoryStore()
	clock := newFakeClock()
	a := newTestClient(t, fake, clock, WithStore(store))
	b := newTestClient(t, fake, clock, WithStore(store))

	ta, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	tb, err := b.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ta, tb)
	assert.Equal(t, 1, fake.count("/gettoken"))
}

func TestValidationError_MessageAndAPIError(t *testing.T) {
	err := &ValidationError{Field: "msgtype", Message: "required field is missing", Suggestion: "set msgtype"}
	assert.Equal(t, "validation error in msgtype: required field is missing (set msgtype)", err.Error())

	apiErr := &APIError{Code: 40014, Message: "invalid access_token", Path: "/user/get"}
	assert.Equal(t, "dingtalk /user/get: errcode 40014: invalid access_token", apiErr.Error())
}
