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

package credentials

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
)

func TestTokenCommand(t *testing.T) {
	api := commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewTokenCommand())
	require.NoError(t, err)
	assert.Equal(t, "token-1\n", out)

	req, _ := api.Last("/gettoken")
	require.NotNil(t, req)
	assert.Equal(t, "key", req.URL.Query().Get("appkey"))
}

func TestTokenCommand_RefreshJSON(t *testing.T) {
	api := commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewTokenCommand(), "--refresh", "--json")
	require.NoError(t, err)

	var got Output
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "access_token", got.Kind)
	assert.Equal(t, "token-1", got.Value)
	assert.True(t, got.Refreshed)
	assert.InDelta(t, 7190, got.ExpiresIn, 5)
	assert.Equal(t, 1, api.Count("/gettoken"))
}

func TestTokenCommand_APIError(t *testing.T) {
	api := commandtest.NewAPI(t)
	api.Reply("/gettoken", map[string]any{"errcode": 40089, "errmsg": "invalid appkey or appsecret"})

	_, err := commandtest.Run(t, NewTokenCommand())
	require.Error(t, err)
	assert.Equal(t, shared.ExitAPI, shared.ExitCode(err))
}

func TestTokenCommand_NoCredentials(t *testing.T) {
	commandtest.NewAPI(t)
	t.Setenv("DINGTALK_APP_KEY", "")

	_, err := commandtest.Run(t, NewTokenCommand())
	require.Error(t, err)
	assert.Equal(t, shared.ExitConfig, shared.ExitCode(err))
}

func TestTicketCommand(t *testing.T) {
	api := commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewTicketCommand(), "--type", "other", "--jq", ".value")
	require.NoError(t, err)
	assert.Equal(t, "ticket-other\n", out)

	req, _ := api.Last("/get_jsapi_ticket")
	require.NotNil(t, req)
	assert.Equal(t, "token-1", req.URL.Query().Get("access_token"))
	assert.Equal(t, "other", req.URL.Query().Get("type"))
}
