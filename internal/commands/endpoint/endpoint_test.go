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

package endpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

func TestCallCommand_GET(t *testing.T) {
	api := commandtest.NewAPI(t)
	api.Reply("/user/get", map[string]any{"errcode": 0, "userid": "u1", "name": "Ann"})

	out, err := commandtest.Run(t, NewCallCommand(), "user.get", "-p", "userid=u1", "--jq", ".name")
	require.NoError(t, err)
	assert.Equal(t, "Ann\n", out)

	req, _ := api.Last("/user/get")
	require.NotNil(t, req)
	assert.Equal(t, "u1", req.URL.Query().Get("userid"))
	assert.Equal(t, "token-1", req.URL.Query().Get("access_token"))
}

func TestCallCommand_POSTFromFile(t *testing.T) {
	api := commandtest.NewAPI(t)
	path := filepath.Join(t.TempDir(), "dept.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"R&D","parentid":1,"order":9007199254740993}`), 0600))

	_, err := commandtest.Run(t, NewCallCommand(), "department.create", "--data", "@"+path)
	require.NoError(t, err)

	_, body := api.Last("/department/create")
	assert.Contains(t, body, `"order":9007199254740993`)
	assert.Contains(t, body, `"parentid":1`)
}

func TestCallCommand_ParamsOverrideData(t *testing.T) {
	api := commandtest.NewAPI(t)

	_, err := commandtest.Run(t, NewCallCommand(), "department.update", "--data", `{"id":5,"name":"old"}`, "-p", "name=new")
	require.NoError(t, err)

	_, body := api.Last("/department/update")
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "new", got["name"])
	assert.EqualValues(t, 5, got["id"])
}

func TestCallCommand_MissingFieldSendsNothing(t *testing.T) {
	api := commandtest.NewAPI(t)

	_, err := commandtest.Run(t, NewCallCommand(), "message.send", "-p", "touser=u1", "-p", "agentid=1")
	require.Error(t, err)

	var verr *sdk.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "msgtype", verr.Field)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
	assert.Equal(t, 0, api.Count("/gettoken"))
	assert.Equal(t, 0, api.Count("/message/send"))
}

func TestCallCommand_UnknownEndpoint(t *testing.T) {
	commandtest.NewAPI(t)

	_, err := commandtest.Run(t, NewCallCommand(), "user.nope")
	var verr *sdk.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endpoint", verr.Field)
}

func TestCallCommand_DryRun(t *testing.T) {
	api := commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewCallCommand(), "user.get", "-p", "userid=u1", "--dry-run", "--json")
	require.NoError(t, err)

	var got dryRunView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "/user/get", got.Endpoint.Path)
	assert.Equal(t, "u1", got.Params["userid"])
	assert.Equal(t, 0, api.Count("/gettoken"))
}

func TestCallCommand_APIError(t *testing.T) {
	api := commandtest.NewAPI(t)
	api.Reply("/user/get", map[string]any{"errcode": 60121, "errmsg": "user not found"})

	_, err := commandtest.Run(t, NewCallCommand(), "user.get", "-p", "userid=ghost")
	require.Error(t, err)
	assert.True(t, sdk.IsAPIError(err, 60121))
	assert.Equal(t, shared.ExitAPI, shared.ExitCode(err))
}

func TestBuildParams(t *testing.T) {
	p, err := buildParams(strings.NewReader(`{"a":1}`), "-", []string{"b=2"})
	require.NoError(t, err)
	assert.Equal(t, "1", p["a"].(json.Number).String())
	assert.Equal(t, "2", p["b"])

	_, err = buildParams(nil, "[1,2]", nil)
	assert.Error(t, err)

	_, err = buildParams(nil, "", []string{"=x"})
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	out, err := commandtest.Run(t, NewListCommand(), "user", "--json")
	require.NoError(t, err)

	var views []view
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.NotEmpty(t, views)
	for _, v := range views {
		assert.True(t, strings.HasPrefix(v.Name, "user."), v.Name)
	}

	text, err := commandtest.Run(t, NewListCommand())
	require.NoError(t, err)
	assert.Contains(t, text, "message.send")
	assert.Contains(t, text, "/department/list")

	_, err = commandtest.Run(t, NewListCommand(), "nope")
	assert.Error(t, err)
}
