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

package diagnostics

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
)

func TestDoctorCommand(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, api *commandtest.API)
		args        []string
		wantHealthy bool
		wantChecks  int
	}{
		{
			name:        "healthy",
			wantHealthy: true,
			wantChecks:  2,
		},
		{
			name:        "with ticket",
			args:        []string{"--ticket", "jsapi"},
			wantHealthy: true,
			wantChecks:  3,
		},
		{
			name: "rejected credentials",
			setup: func(t *testing.T, api *commandtest.API) {
				api.Reply("/gettoken", map[string]any{"errcode": 40089, "errmsg": "invalid appkey or appsecret"})
			},
			wantHealthy: false,
			wantChecks:  2,
		},
		{
			name: "no credentials",
			setup: func(t *testing.T, api *commandtest.API) {
				t.Setenv("DINGTALK_APP_SECRET", "")
			},
			wantHealthy: false,
			wantChecks:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := commandtest.NewAPI(t)
			if tt.setup != nil {
				tt.setup(t, api)
			}

			out, err := commandtest.Run(t, NewDoctorCommand(), append(tt.args, "--json")...)
			if tt.wantHealthy && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantHealthy && shared.ExitCode(err) != shared.ExitFailure {
				t.Fatalf("exit code = %d, want %d", shared.ExitCode(err), shared.ExitFailure)
			}

			var result DoctorResult
			if err := json.Unmarshal([]byte(out), &result); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, out)
			}
			if result.OverallHealthy != tt.wantHealthy {
				t.Errorf("OverallHealthy = %v, want %v", result.OverallHealthy, tt.wantHealthy)
			}
			if len(result.Checks) != tt.wantChecks {
				t.Errorf("got %d checks, want %d: %+v", len(result.Checks), tt.wantChecks, result.Checks)
			}
			if !tt.wantHealthy && len(result.Recommendations) == 0 {
				t.Error("expected a recommendation")
			}
		})
	}
}

func TestDoctorCommand_Text(t *testing.T) {
	commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewDoctorCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Configuration:", "access token", "Overall Status: Healthy", "app.agent_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsCommand(t *testing.T) {
	api := commandtest.NewAPI(t)

	out, err := commandtest.Run(t, NewMetricsCommand(), "--ticket", "jsapi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.Count("/gettoken") != 1 || api.Count("/get_jsapi_ticket") != 1 {
		t.Errorf("unexpected calls: gettoken=%d ticket=%d", api.Count("/gettoken"), api.Count("/get_jsapi_ticket"))
	}
	for _, want := range []string{"dingtalk_credential_refreshes", "dingtalk_client_requests", "# TYPE"} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsCommand_APIError(t *testing.T) {
	api := commandtest.NewAPI(t)
	api.Reply("/gettoken", map[string]any{"errcode": -1, "errmsg": "system busy"})

	_, err := commandtest.Run(t, NewMetricsCommand())
	if shared.ExitCode(err) != shared.ExitAPI {
		t.Fatalf("exit code = %d, want %d (err: %v)", shared.ExitCode(err), shared.ExitAPI, err)
	}
}
