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

package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
)

func TestSendCommand(t *testing.T) {
	api := commandtest.NewAPI(t)
	t.Setenv("DINGTALK_AGENT_ID", "777")
	api.Reply("/message/send", map[string]any{"errcode": 0, "messageId": "m1", "invaliduser": "ghost"})

	out, err := commandtest.Run(t, NewSendCommand(), "--to", "u1,u2", "--text", "deploy finished", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageId":"m1","invaliduser":"ghost"}`, out)

	_, body := api.Last("/message/send")
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "u1|u2", got["touser"])
	assert.Equal(t, "777", got["agentid"])
	assert.Equal(t, "text", got["msgtype"])
	assert.Equal(t, map[string]any{"content": "deploy finished"}, got["text"])
}

func TestSendCommand_Conversation(t *testing.T) {
	api := commandtest.NewAPI(t)

	_, err := commandtest.Run(t, NewSendCommand(), "--chat", "cid1", "--sender", "u1", "--text", "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, api.Count("/message/send_to_conversation"))
	assert.Equal(t, 0, api.Count("/message/send"))
}

func TestSendCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no text", []string{"--to", "u1", "--agent", "1"}},
		{"no recipients", []string{"--agent", "1", "--text", "hi"}},
		{"no agent", []string{"--to", "u1", "--text", "hi"}},
		{"chat without sender", []string{"--chat", "cid1", "--text", "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := commandtest.NewAPI(t)
			_, err := commandtest.Run(t, NewSendCommand(), tt.args...)
			require.Error(t, err)
			assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
			assert.Equal(t, 0, api.Count("/gettoken"))
		})
	}
}
