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

package version

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tombee/dingtalk/internal/commands/commandtest"
	"github.com/tombee/dingtalk/internal/commands/shared"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("expected use 'version', got %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("expected short description to be set")
	}
}

func TestVersionOutput(t *testing.T) {
	shared.SetVersion("1.0.0", "test123", "2025-12-22")
	defer shared.SetVersion("dev", "unknown", "unknown")

	out, err := commandtest.Run(t, NewVersionCommand())
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "dingtalk version 1.0.0") || !strings.Contains(out, "test123") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestVersionJSONOutput(t *testing.T) {
	shared.SetVersion("1.0.0", "test123", "2025-12-22")
	defer shared.SetVersion("dev", "unknown", "unknown")

	out, err := commandtest.Run(t, NewVersionCommand(), "--json")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	var info VersionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if info.Version != "1.0.0" || info.Commit != "test123" || info.BuildDate != "2025-12-22" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestVersionJQ(t *testing.T) {
	shared.SetVersion("1.2.3", "abc", "today")
	defer shared.SetVersion("dev", "unknown", "unknown")

	out, err := commandtest.Run(t, NewVersionCommand(), "--jq", ".version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1.2.3\n" {
		t.Errorf("output = %q", out)
	}
}
