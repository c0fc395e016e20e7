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

package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tombee/dingtalk/internal/cli/prompt"
	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/internal/config"
	"github.com/tombee/dingtalk/pkg/credential"
)

func usePrompter(t *testing.T, p prompt.Prompter) {
	t.Helper()
	orig := newPrompter
	newPrompter = func() prompt.Prompter { return p }
	t.Cleanup(func() { newPrompter = orig })
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, name := range []string{"DINGTALK_CONFIG", "DINGTALK_APP_KEY", "DINGTALK_APP_SECRET", "DINGTALK_STORE", "DINGTALK_CORP_ID", "DINGTALK_AGENT_ID"} {
		t.Setenv(name, "")
	}
	return filepath.Join(dir, "config.yaml")
}

func TestConfigure_Keychain(t *testing.T) {
	keyring.MockInit()
	path := isolate(t)
	usePrompter(t, prompt.NewMockPrompter(true, "dingkey", "s3cret", true, "corp1", "42", true, "file"))

	out, err := commandtest.Run(t, NewCommand(), "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration saved")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dingkey", cfg.App.Key)
	assert.Equal(t, config.KeychainPrefix, cfg.App.Secret)
	assert.Equal(t, "corp1", cfg.App.CorpID)
	assert.Equal(t, "42", cfg.App.AgentID)
	assert.True(t, cfg.App.SSO)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.NotEmpty(t, cfg.Store.Path)

	secret, err := credential.GetSecret(config.SecretName("dingkey"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	require.NoError(t, cfg.RequireCredentials())
	assert.Equal(t, "s3cret", cfg.App.Secret)
}

func TestConfigure_NonInteractive(t *testing.T) {
	path := isolate(t)
	usePrompter(t, prompt.NewMockPrompter(false))

	_, err := commandtest.Run(t, NewCommand(), "--config", path)
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
	assert.NoFileExists(t, path)
}

func TestConfigure_VerifyKeepsExistingSecret(t *testing.T) {
	api := commandtest.NewAPI(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	usePrompter(t, prompt.NewMockPrompter(true, "key", "", false, "", "", "memory"))

	_, err := commandtest.Run(t, NewCommand(), "--config", path, "--verify")
	require.NoError(t, err)
	assert.Equal(t, 1, api.Count("/gettoken"))

	r, _ := api.Last("/gettoken")
	assert.Equal(t, "secret", r.URL.Query().Get("appsecret"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "secret: secret")
}

func TestConfigure_VerifyRejected(t *testing.T) {
	api := commandtest.NewAPI(t)
	api.Reply("/gettoken", map[string]any{"errcode": 40089, "errmsg": "invalid appkey or appsecret"})
	path := filepath.Join(t.TempDir(), "config.yaml")
	usePrompter(t, prompt.NewMockPrompter(true, "key", "wrong", false, "", "", "memory"))

	_, err := commandtest.Run(t, NewCommand(), "--config", path, "--verify")
	require.Error(t, err)
	assert.Equal(t, shared.ExitAPI, shared.ExitCode(err))
	assert.NoFileExists(t, path)
}

func TestRun_Redis(t *testing.T) {
	cfg := config.Default()
	p := prompt.NewMockPrompter(true, "k", "s", false, "", "", "redis", "redis.local:6379")

	secret, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)
	assert.Equal(t, "s", secret)
	assert.Equal(t, "s", cfg.App.Secret)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "redis.local:6379", cfg.Store.Redis.Addr)
	assert.False(t, cfg.App.SSO)
}

func TestRun_RejectsBadAnswers(t *testing.T) {
	tests := []struct {
		name      string
		responses []any
	}{
		{"empty key", []any{""}},
		{"missing secret", []any{"k", ""}},
		{"bad redis address", []any{"k", "s", false, "", "", "redis", "not an address"}},
		{"unknown store", []any{"k", "s", false, "", "", "floppy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prompt.NewMockPrompter(true, tt.responses...)
			_, err := Run(context.Background(), p, config.Default())
			require.Error(t, err)
		})
	}
}
