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

// Package commandtest runs CLI commands against an emulated DingTalk API.
package commandtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
)

// API emulates the DingTalk endpoints a command touches. /gettoken and
// /get_jsapi_ticket answer by default; other paths return errcode 0 unless
// a handler is registered.
type API struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests map[string][]*http.Request
	bodies   map[string][]string
}

// NewAPI starts the emulator and points the CLI at it through the
// environment: app key "key", secret "secret", memory store.
func NewAPI(t *testing.T) *API {
	t.Helper()
	a := &API{
		handlers: make(map[string]http.HandlerFunc),
		requests: make(map[string][]*http.Request),
		bodies:   make(map[string][]string),
	}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.Server.Close)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("DINGTALK_CONFIG", "")
	t.Setenv("DINGTALK_APP_KEY", "key")
	t.Setenv("DINGTALK_APP_SECRET", "secret")
	t.Setenv("DINGTALK_HOST", a.Server.URL)
	t.Setenv("DINGTALK_STORE", "memory")
	t.Setenv("DINGTALK_LOG_LEVEL", "error")
	t.Setenv("DINGTALK_TRACE_EXPORTER", "none")
	return a
}

func (a *API) serve(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	_, _ = body.ReadFrom(r.Body)

	a.mu.Lock()
	a.requests[r.URL.Path] = append(a.requests[r.URL.Path], r)
	a.bodies[r.URL.Path] = append(a.bodies[r.URL.Path], body.String())
	h := a.handlers[r.URL.Path]
	n := len(a.requests[r.URL.Path])
	a.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}
	switch r.URL.Path {
	case "/gettoken":
		WriteJSON(w, map[string]any{"errcode": 0, "access_token": "token-" + strconv.Itoa(n), "expires_in": 7200})
	case "/get_jsapi_ticket":
		WriteJSON(w, map[string]any{"errcode": 0, "ticket": "ticket-" + r.URL.Query().Get("type"), "expires_in": 7200})
	default:
		WriteJSON(w, map[string]any{"errcode": 0, "errmsg": "ok"})
	}
}

// Handle registers h for path.
func (a *API) Handle(path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = h
}

// Reply answers path with v encoded as JSON.
func (a *API) Reply(path string, v any) {
	a.Handle(path, func(w http.ResponseWriter, r *http.Request) { WriteJSON(w, v) })
}

// Count returns the number of requests made to path.
func (a *API) Count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests[path])
}

// Last returns the most recent request to path and its body.
func (a *API) Last(path string) (*http.Request, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	reqs := a.requests[path]
	if len(reqs) == 0 {
		return nil, ""
	}
	return reqs[len(reqs)-1], a.bodies[path][len(reqs)-1]
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Run executes cmd under a root command carrying the global flags and
// returns what it wrote to stdout.
func Run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)

	root := &cobra.Command{Use: "dingtalk", SilenceUsage: true, SilenceErrors: true}
	shared.RegisterFlags(root.PersistentFlags())
	root.AddCommand(cmd)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.Execute()
	return stdout.String(), err
}
