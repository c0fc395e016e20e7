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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDingTalk emulates the token, ticket and business endpoints.
type fakeDingTalk struct {
	srv *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]http.HandlerFunc
	queries  map[string][]string
}

func newFakeDingTalk(t *testing.T) *fakeDingTalk {
	t.Helper()
	f := &fakeDingTalk{
		calls:    make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
		queries:  make(map[string][]string),
	}

	f.handlers["/gettoken"] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"errcode":      0,
			"errmsg":       "ok",
			"access_token": fmt.Sprintf("token-%d", f.count("/gettoken")),
			"expires_in":   7200,
		})
	}
	f.handlers["/sso/gettoken"] = f.handlers["/gettoken"]
	f.handlers["/get_jsapi_ticket"] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"errcode":    0,
			"errmsg":     "ok",
			"ticket":     fmt.Sprintf("ticket-%s-%d", r.URL.Query().Get("type"), f.count("/get_jsapi_ticket")),
			"expires_in": 7200,
		})
	}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.queries[r.URL.Path] = append(f.queries[r.URL.Path], r.URL.RawQuery)
		h, ok := f.handlers[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			writeJSON(w, map[string]any{"errcode": 0, "errmsg": "ok"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDingTalk) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeDingTalk) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeDingTalk) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// lastQuery returns the raw query of the most recent request to path.
func (f *fakeDingTalk) lastQuery(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queries[path]
	if len(q) == 0 {
		return ""
	}
	return q[len(q)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient points a client with app key "key" and secret "secret" at f.
func newTestClient(t *testing.T, f *fakeDingTalk, clock *fakeClock, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithCredentials("key", "secret"),
		WithHost(f.srv.URL),
		WithLogger(discardLogger()),
		WithClock(clock.Now),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
