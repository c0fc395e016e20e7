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

package jsapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

func TestJSAPIConfigCommand_FixedInputs(t *testing.T) {
	api := commandtest.NewAPI(t)
	t.Setenv("DINGTALK_CORP_ID", "corp1")

	out, err := commandtest.Run(t, NewJSAPIConfigCommand(),
		"https://a.com/p#section", "--ticket", "T", "--nonce", "N", "--timestamp", "1000")
	require.NoError(t, err)

	var cfg sdk.JSAPIConfig
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "corp1", cfg.CorpID)
	assert.Equal(t, int64(1000), cfg.TimeStamp)
	assert.Equal(t, "N", cfg.NonceStr)
	assert.Equal(t, "6ff96a838625b083d1c776fbd99d99f43476bebe", cfg.Signature)
	assert.Equal(t, 0, api.Count("/get_jsapi_ticket"))
}

func TestJSAPIConfigCommand_FetchesTicket(t *testing.T) {
	api := commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewJSAPIConfigCommand(), "https://a.com/p", "--jq", ".signature")
	require.NoError(t, err)
	assert.Len(t, out, 41)
	assert.Equal(t, 1, api.Count("/get_jsapi_ticket"))
}

func TestJSAPIConfigCommand_BadField(t *testing.T) {
	commandtest.NewAPI(t)

	_, err := commandtest.Run(t, NewJSAPIConfigCommand(), "https://a.com/p", "--field", "novalue")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
}

func TestNormalizeURLCommand(t *testing.T) {
	out, err := commandtest.Run(t, NewNormalizeURLCommand(), "https://a.com/p?x=1&q=a%20b#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/p?x=1&q=a b\n", out)
}

func TestSignCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"hash", []string{"hash", "abc", "--secret", "secret"}, "de0a408ef519cd62e7379039634152874895c50c\n"},
		{"hmac base64", []string{"hmac", "1700000000000", "--secret", "appsecret", "--enc", "base64"}, "cfDkTXRXAlWBDc21nIq8m7//dF3/eqAIn9bQE5WUezo=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := commandtest.Run(t, NewSignCommand(), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSignCommand_UnsupportedAlgorithm(t *testing.T) {
	_, err := commandtest.Run(t, NewSignCommand(), "hmac", "x", "--alg", "crc32")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
}
