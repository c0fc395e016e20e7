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
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://a.com/p", "https://a.com/p"},
		{"https://a.com/p?x=1#frag", "https://a.com/p?x=1"},
		{"https://a.com/p#frag?x=1", "https://a.com/p"},
		{"https://a.com/p?", "https://a.com/p"},
		{"https://a.com/p?q=a%20b&x=1", "https://a.com/p?q=a b&x=1"},
		{"https://a.com/p?q=a+b", "https://a.com/p?q=a b"},
		{"https://a.com/p?redirect=https%3A%2F%2Fb.com%2Fc", "https://a.com/p?redirect=https://b.com/c"},
		{"https://a.com/p?flag&&y=2", "https://a.com/p?flag=&y=2"},
		{"https://a.com/p?x=a=b", "https://a.com/p?x=a=b"},
		{"https://a.com/p?bad=%zz", "https://a.com/p?bad=%zz"},
		{"https://a.com/p?z=1&a=2", "https://a.com/p?z=1&a=2"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeURL(got), "not idempotent")
		})
	}
}

func TestSignJSAPI(t *testing.T) {
	fields := map[string]string{
		"url":          "https://a.com/p",
		"timestamp":    "1000",
		"noncestr":     "N",
		"jsapi_ticket": "T",
	}
	assert.Equal(t, "6ff96a838625b083d1c776fbd99d99f43476bebe", SignJSAPI(fields))
}

func TestJSAPIConfig_Deterministic(t *testing.T) {
	fake := newFakeDingTalk(t)
	c := newTestClient(t, fake, newFakeClock(), WithCorpID("corp1"), WithAgentID("agent1"))
	opts := JSAPIOptions{Ticket: "T", NonceStr: "N", Timestamp: 1000}

	first, err := c.JSAPIConfig(context.Background(), "https://a.com/p#section", opts)
	require.NoError(t, err)
	second, err := c.JSAPIConfig(context.Background(), "https://a.com/p", opts)
	require.NoError(t, err)

	assert.Equal(t, &JSAPIConfig{
		CorpID:    "corp1",
		AgentID:   "agent1",
		TimeStamp: 1000,
		NonceStr:  "N",
		Signature: "6ff96a838625b083d1c776fbd99d99f43476bebe",
	}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, fake.total())

	withQuery, err := c.JSAPIConfig(context.Background(), "https://a.com/p?x=1", opts)
	require.NoError(t, err)
	assert.Equal(t, "aea7322b93c84b4052e59ded5130ee1fa42883c7", withQuery.Signature)
}

func TestJSAPIConfig_FetchesTicketAndDefaults(t *testing.T) {
	fake := newFakeDingTalk(t)
	clock := newFakeClock()
	c := newTestClient(t, fake, clock, WithNoncePrefix("app"))

	cfg, err := c.JSAPIConfig(context.Background(), "https://a.com/p", JSAPIOptions{})
	require.NoError(t, err)

	ms := clock.Now().UnixMilli()
	assert.Equal(t, ms, cfg.TimeStamp)
	assert.Regexp(t, `^app#`+strconv.FormatInt(ms, 10)+`#[0-9a-f]{8}$`, cfg.NonceStr)
	assert.Equal(t, SignJSAPI(map[string]string{
		"jsapi_ticket": "ticket-jsapi-1",
		"noncestr":     cfg.NonceStr,
		"timestamp":    strconv.FormatInt(ms, 10),
		"url":          "https://a.com/p",
	}), cfg.Signature)
	assert.Equal(t, 1, fake.count("/get_jsapi_ticket"))
}

func TestJSAPIConfig_DefaultNonceIsUniquePerCall(t *testing.T) {
	fake := newFakeDingTalk(t)
	c := newTestClient(t, fake, newFakeClock())
	ctx := context.Background()

	first, err := c.JSAPIConfig(ctx, "https://a.com/p", JSAPIOptions{Ticket: "T"})
	require.NoError(t, err)
	second, err := c.JSAPIConfig(ctx, "https://a.com/p", JSAPIOptions{Ticket: "T"})
	require.NoError(t, err)

	assert.Equal(t, first.TimeStamp, second.TimeStamp)
	assert.True(t, strings.HasPrefix(first.NonceStr, "key#"), first.NonceStr)
	assert.NotEqual(t, first.NonceStr, second.NonceStr)
	assert.NotEqual(t, first.Signature, second.Signature)
}

func TestJSAPIConfig_ExtraFields(t *testing.T) {
	fake := newFakeDingTalk(t)
	c := newTestClient(t, fake, newFakeClock())
	ctx := context.Background()

	cfg, err := c.JSAPIConfig(ctx, "https://a.com/p", JSAPIOptions{
		Ticket:    "T",
		NonceStr:  "N",
		Timestamp: 1000,
		Extra:     map[string]string{"timestamp": "2000", "noncestr": "M"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cfg.TimeStamp)
	assert.Equal(t, "M", cfg.NonceStr)

	_, err = c.JSAPIConfig(ctx, "https://a.com/p", JSAPIOptions{
		Ticket: "T",
		Extra:  map[string]string{"timestamp": "soon"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "timestamp", verr.Field)

	_, err = c.JSAPIConfig(ctx, "", JSAPIOptions{Ticket: "T"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)
}

func TestSignatureHMAC(t *testing.T) {
	const msg = "The quick brown fox jumps over the lazy dog"
	tests := []struct {
		name string
		alg  HashAlgorithm
		enc  Encoding
		want string
	}{
		{"defaults", "", "", "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"},
		{"sha256 hex", SHA256, Hex, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"},
		{"sha256 base64", SHA256, Base64, "97yD9DBThCSxMpjmqm+xQ+9NWaFJRhdZl0edvC0aPNg="},
		{"upper case", "SHA256", "BASE64", "97yD9DBThCSxMpjmqm+xQ+9NWaFJRhdZl0edvC0aPNg="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignatureHMAC(msg, "key", tt.alg, tt.enc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignatureHash(t *testing.T) {
	tests := []struct {
		name   string
		str    string
		secret string
		alg    HashAlgorithm
		want   string
	}{
		{"sha1 default", "abc", "", "", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"secret appended", "abc", "secret", SHA1, "de0a408ef519cd62e7379039634152874895c50c"},
		{"md5", "abc", "", MD5, "900150983cd24fb0d6963f7d28e17f72"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignatureHash(tt.str, tt.secret, tt.alg, Hex)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignature_Unsupported(t *testing.T) {
	_, err := SignatureHMAC("a", "b", "crc32", Hex)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "algorithm", verr.Field)

	_, err = SignatureHash("a", "b", SHA1, "base32")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "encoding", verr.Field)
}
