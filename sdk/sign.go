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
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// HashAlgorithm names a digest for SignatureHMAC and SignatureHash.
type HashAlgorithm string

const (
	MD5    HashAlgorithm = "md5"
	SHA1   HashAlgorithm = "sha1"
	SHA256 HashAlgorithm = "sha256"
	SHA512 HashAlgorithm = "sha512"
)

// Encoding names the output encoding of a digest.
type Encoding string

const (
	Hex    Encoding = "hex"
	Base64 Encoding = "base64"
)

// NormalizeURL prepares a page URL for JSAPI signing: the fragment is
// dropped and query values are decoded, because the platform signs the
// un-encoded form. Parameter order is preserved and a bare key becomes "key=".
//
//	NormalizeURL("https://a.com/p?x=1&q=a%20b#frag") == "https://a.com/p?x=1&q=a b"
func NormalizeURL(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	base, query, _ := strings.Cut(raw, "?")

	pairs := make([]string, 0, strings.Count(query, "&")+1)
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		pairs = append(pairs, unescape(k)+"="+unescape(v))
	}
	if len(pairs) == 0 {
		return base
	}
	return base + "?" + strings.Join(pairs, "&")
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// SignJSAPI joins fields as sorted key=value pairs and returns the hex SHA1.
func SignJSAPI(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}

	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// JSAPIOptions tunes JSAPIConfig. Zero values select defaults.
type JSAPIOptions struct {
	// TicketType selects the ticket (default "jsapi").
	TicketType string

	// Ticket skips the ticket lookup.
	Ticket string

	// NonceStr defaults to "<prefix>#<unix ms>".
	NonceStr string

	// Timestamp in unix milliseconds; defaults to now.
	Timestamp int64

	// Extra fields are signed too and override the built-in ones.
	Extra map[string]string
}

// JSAPIConfig is the dd.config payload for an embedded page.
type JSAPIConfig struct {
	CorpID    string `json:"corpId"`
	AgentID   string `json:"agentId,omitempty"`
	TimeStamp int64  `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Signature string `json:"signature"`
}

// JSAPIConfig signs pageURL with a valid ticket.
func (c *Client) JSAPIConfig(ctx context.Context, pageURL string, opts JSAPIOptions) (*JSAPIConfig, error) {
	if pageURL == "" {
		return nil, missingField("url")
	}

	ticket := opts.Ticket
	if ticket == "" {
		tok, err := c.jsapiTicket(ctx, opts.TicketType)
		if err != nil {
			return nil, err
		}
		ticket = tok.Value
	}

	ts := opts.Timestamp
	if ts == 0 {
		ts = c.now().UnixMilli()
	}
	nonce := opts.NonceStr
	if nonce == "" {
		nonce = c.noncePrefix + "#" + strconv.FormatInt(c.now().UnixMilli(), 10) + "#" + uuid.NewString()[:8]
	}

	fields := map[string]string{
		"jsapi_ticket": ticket,
		"noncestr":     nonce,
		"timestamp":    strconv.FormatInt(ts, 10),
		"url":          NormalizeURL(pageURL),
	}
	for k, v := range opts.Extra {
		fields[k] = v
	}

	signedTS, err := strconv.ParseInt(fields["timestamp"], 10, 64)
	if err != nil {
		return nil, &ValidationError{Field: "timestamp", Message: fmt.Sprintf("not an integer: %q", fields["timestamp"])}
	}

	return &JSAPIConfig{
		CorpID:    c.corpID,
		AgentID:   c.agentID,
		TimeStamp: signedTS,
		NonceStr:  fields["noncestr"],
		Signature: SignJSAPI(fields),
	}, nil
}

// SignatureHMAC returns the keyed digest of str. Defaults: SHA256, Hex.
func SignatureHMAC(str, secret string, alg HashAlgorithm, enc Encoding) (string, error) {
	if alg == "" {
		alg = SHA256
	}
	newHash, err := hashFunc(alg)
	if err != nil {
		return "", err
	}
	mac := hmac.New(newHash, []byte(secret))
	mac.Write([]byte(str))
	return encode(mac.Sum(nil), enc)
}

// SignatureHash returns the digest of str followed by secret. Defaults: SHA1, Hex.
func SignatureHash(str, secret string, alg HashAlgorithm, enc Encoding) (string, error) {
	if alg == "" {
		alg = SHA1
	}
	newHash, err := hashFunc(alg)
	if err != nil {
		return "", err
	}
	h := newHash()
	h.Write([]byte(str))
	h.Write([]byte(secret))
	return encode(h.Sum(nil), enc)
}

func hashFunc(alg HashAlgorithm) (func() hash.Hash, error) {
	switch HashAlgorithm(strings.ToLower(string(alg))) {
	case MD5:
		return md5.New, nil
	case SHA1:
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, &ValidationError{Field: "algorithm", Message: fmt.Sprintf("unsupported hash algorithm %q", alg)}
	}
}

func encode(sum []byte, enc Encoding) (string, error) {
	switch Encoding(strings.ToLower(string(enc))) {
	case Hex, "":
		return hex.EncodeToString(sum), nil
	case Base64:
		return base64.StdEncoding.EncodeToString(sum), nil
	default:
		return "", &ValidationError{Field: "encoding", Message: fmt.Sprintf("unsupported encoding %q", enc)}
	}
}
