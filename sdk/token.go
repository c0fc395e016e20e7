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
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/tombee/dingtalk/pkg/credential"
	pkgerrors "github.com/tombee/dingtalk/pkg/errors"
)

// ExpirySafetyMargin is subtracted from the lifetime the platform declares.
const ExpirySafetyMargin = 10 * time.Second

// defaultLifetime applies when a token response omits expires_in.
const defaultLifetime = 7200 * time.Second

type fetchFunc func(ctx context.Context) (*credential.Token, error)

// AccessToken returns a valid access token, fetching a new one when the
// stored token is absent or expired.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	tok, err := c.credential(ctx, credential.AccessTokenKey(c.credentialApp()), c.fetchAccessToken)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// AccessTokenInfo is AccessToken with the stored expiry.
func (c *Client) AccessTokenInfo(ctx context.Context) (*credential.Token, error) {
	return c.credential(ctx, credential.AccessTokenKey(c.credentialApp()), c.fetchAccessToken)
}

// RefreshAccessToken fetches and stores a new access token even when the
// stored one is still valid.
func (c *Client) RefreshAccessToken(ctx context.Context) (*credential.Token, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return c.refresh(ctx, credential.AccessTokenKey(c.credentialApp()), c.fetchAccessToken)
}

// JSAPITicket returns a valid ticket of the given type ("" means "jsapi").
func (c *Client) JSAPITicket(ctx context.Context, ticketType string) (string, error) {
	tok, err := c.jsapiTicket(ctx, ticketType)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// JSAPITicketInfo is JSAPITicket with the stored expiry.
func (c *Client) JSAPITicketInfo(ctx context.Context, ticketType string) (*credential.Token, error) {
	return c.jsapiTicket(ctx, ticketType)
}

func (c *Client) jsapiTicket(ctx context.Context, ticketType string) (*credential.Token, error) {
	key := credential.TicketKey(c.credentialApp(), ticketType)
	return c.credential(ctx, key, func(ctx context.Context) (*credential.Token, error) {
		return c.fetchTicket(ctx, key.Type)
	})
}

// credential implements the lazy refresh shared by tokens and tickets.
func (c *Client) credential(ctx context.Context, key credential.Key, fetch fetchFunc) (*credential.Token, error) {
	tok, err := c.store.Get(ctx, key)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return nil, pkgerrors.Wrap(err, "load "+key.String())
	}
	if tok.Valid(c.now()) {
		c.instruments.recordCacheHit(ctx, key)
		return tok, nil
	}

	if !c.dedup {
		return c.refresh(ctx, key, fetch)
	}

	// The shared fetch outlives any one caller; each caller only stops waiting.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key.String(), func() (any, error) {
		// A refresh that finished since the first read may have stored a fresh token.
		if tok, err := c.store.Get(shared, key); err == nil && tok.Valid(c.now()) {
			return tok, nil
		}
		return c.refresh(shared, key, fetch)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*credential.Token), nil
	}
}

func (c *Client) refresh(ctx context.Context, key credential.Key, fetch fetchFunc) (tok *credential.Token, err error) {
	ctx, span := c.tracer.Start(ctx, "dingtalk.credential.refresh",
		trace.WithAttributes(
			attribute.String("dingtalk.credential.kind", string(key.Kind)),
			attribute.String("dingtalk.credential.type", key.Type),
		))
	defer func() {
		c.instruments.recordRefresh(ctx, key, err)
		endSpan(span, err)
	}()

	tok, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, tok); err != nil {
		return nil, pkgerrors.Wrap(err, "save "+key.String())
	}

	c.logger.DebugContext(ctx, "refreshed dingtalk credential",
		slog.String("kind", string(key.Kind)),
		slog.String("type", key.Type),
		slog.Time("expire_time", tok.ExpireTime))
	return tok, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Ticket      string `json:"ticket"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) fetchAccessToken(ctx context.Context) (*credential.Token, error) {
	path := "/gettoken"
	query := url.Values{"appkey": {c.appKey}, "appsecret": {c.appSecret}}
	if c.sso {
		path = "/sso/gettoken"
		query = url.Values{"corpid": {c.corpID}, "corpsecret": {c.appSecret}}
	}

	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query, IgnoreAccessToken: true})
	if err != nil {
		return nil, err
	}
	var body tokenResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("dingtalk %s: response has no access_token", path)
	}
	return c.newToken(body.AccessToken, body.ExpiresIn), nil
}

func (c *Client) fetchTicket(ctx context.Context, ticketType string) (*credential.Token, error) {
	resp, err := c.Get(ctx, "/get_jsapi_ticket", url.Values{"type": {ticketType}})
	if err != nil {
		return nil, err
	}
	var body tokenResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	if body.Ticket == "" {
		return nil, errors.New("dingtalk /get_jsapi_ticket: response has no ticket")
	}
	return c.newToken(body.Ticket, body.ExpiresIn), nil
}

// newToken stamps a freshly fetched value with now + expiresIn - margin.
func (c *Client) newToken(value string, expiresIn int64) *credential.Token {
	lifetime := time.Duration(expiresIn) * time.Second
	if expiresIn <= 0 {
		lifetime = defaultLifetime
	}
	return &credential.Token{
		Value:      value,
		ExpireTime: c.now().Add(lifetime - ExpirySafetyMargin),
	}
}

// TokenSource exposes the access token as an oauth2.TokenSource, for use with
// APIs that take the token in a header.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, client: c}
}

type tokenSource struct {
	ctx    context.Context
	client *Client
}

// Token implements oauth2.TokenSource.
func (ts *tokenSource) Token() (*oauth2.Token, error) {
	c := ts.client
	tok, err := c.credential(ts.ctx, credential.AccessTokenKey(c.credentialApp()), c.fetchAccessToken)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok.Value, Expiry: tok.ExpireTime}, nil
}
