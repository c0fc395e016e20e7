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

// Package credential persists DingTalk access tokens and tickets.
//
// A Store is a plain get/set abstraction keyed by Key. The SDK decides when a
// credential is stale; stores only hold whatever they were given. Backends:
//
//   - memory: process-local map (default, not shared between processes)
//   - file: AES-256-GCM encrypted JSON file with Argon2id key derivation
//   - sqlite: single table in a local database (WAL mode)
//   - redis: one key per credential with TTL set to the credential expiry
//   - keychain: OS keychain via go-keyring
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Store.Get when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// DefaultTicketType is the ticket type used for JSAPI page signing.
const DefaultTicketType = "jsapi"

// Token is a short-lived credential issued by the platform.
type Token struct {
	Value      string    `json:"value"`
	ExpireTime time.Time `json:"expire_time"`
}

// Valid reports whether the token can be used at now.
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpireTime)
}

// Kind distinguishes access tokens from tickets.
type Kind string

const (
	KindAccessToken Kind = "access_token"
	KindTicket      Kind = "ticket"
)

// Key identifies a stored credential. App scopes keys so several applications
// can share one backing store.
type Key struct {
	App  string
	Kind Kind
	// Type is the ticket type; empty for access tokens.
	Type string
}

// AccessTokenKey returns the key of an application's access token.
func AccessTokenKey(app string) Key {
	return Key{App: app, Kind: KindAccessToken}
}

// TicketKey returns the key of an application's ticket of the given type.
// An empty type selects DefaultTicketType.
func TicketKey(app, ticketType string) Key {
	if ticketType == "" {
		ticketType = DefaultTicketType
	}
	return Key{App: app, Kind: KindTicket, Type: ticketType}
}

// String renders the key as a flat identifier, e.g. "dingtalk:app:ticket:jsapi".
func (k Key) String() string {
	if k.Kind == KindTicket {
		return fmt.Sprintf("dingtalk:%s:%s:%s", k.App, k.Kind, k.Type)
	}
	return fmt.Sprintf("dingtalk:%s:%s", k.App, k.Kind)
}

// Store persists credentials.
type Store interface {
	// Get returns the credential stored under key, or ErrNotFound.
	Get(ctx context.Context, key Key) (*Token, error)

	// Set stores token under key, replacing any previous value.
	Set(ctx context.Context, key Key, token *Token) error
}

// Hooks adapts separate load/save functions to a Store. A nil getter reports
// ErrNotFound and a nil saver discards the value.
type Hooks struct {
	GetToken   func(ctx context.Context) (*Token, error)
	SaveToken  func(ctx context.Context, token *Token) error
	GetTicket  func(ctx context.Context, ticketType string) (*Token, error)
	SaveTicket func(ctx context.Context, ticketType string, token *Token) error
}

var _ Store = Hooks{}

// Get dispatches to GetToken or GetTicket.
func (h Hooks) Get(ctx context.Context, key Key) (*Token, error) {
	var (
		tok *Token
		err error
	)
	switch key.Kind {
	case KindAccessToken:
		if h.GetToken == nil {
			return nil, ErrNotFound
		}
		tok, err = h.GetToken(ctx)
	case KindTicket:
		if h.GetTicket == nil {
			return nil, ErrNotFound
		}
		tok, err = h.GetTicket(ctx, key.Type)
	default:
		return nil, fmt.Errorf("unknown credential kind %q", key.Kind)
	}
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotFound
	}
	return tok, nil
}

// Set dispatches to SaveToken or SaveTicket.
func (h Hooks) Set(ctx context.Context, key Key, token *Token) error {
	switch key.Kind {
	case KindAccessToken:
		if h.SaveToken == nil {
			return nil
		}
		return h.SaveToken(ctx, token)
	case KindTicket:
		if h.SaveTicket == nil {
			return nil
		}
		return h.SaveTicket(ctx, key.Type, token)
	default:
		return fmt.Errorf("unknown credential kind %q", key.Kind)
	}
}

func cloneToken(t *Token) *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
