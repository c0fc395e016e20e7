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
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

type view struct {
	Name        string   `json:"name"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Required    []string `json:"required"`
	Description string   `json:"description"`
}

func newView(e sdk.Endpoint) view {
	req := e.Required
	if req == nil {
		req = []string{}
	}
	return view{Name: e.Name, Method: e.Method, Path: e.Path, Required: req, Description: e.Description}
}

// NewListCommand creates the endpoints command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints [group]",
		Short: "List the endpoint table",
		Long: `List every endpoint 'dingtalk call' accepts with its method, path and
required fields. A group such as "user" or "message" narrows the list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var views []view
			for _, e := range sdk.Endpoints() {
				if len(args) == 1 && !strings.HasPrefix(e.Name, args[0]+".") {
					continue
				}
				views = append(views, newView(e))
			}
			if len(views) == 0 && len(args) == 1 {
				return &sdk.ValidationError{Field: "group", Message: fmt.Sprintf("no endpoints in group %q", args[0])}
			}
			return shared.Print(cmd, views, func(w io.Writer) error {
				return renderTable(w, views)
			})
		},
	}
}

func renderTable(w io.Writer, views []view) error {
	nameWidth, pathWidth := len("NAME"), len("PATH")
	for _, v := range views {
		nameWidth = max(nameWidth, len(v.Name))
		pathWidth = max(pathWidth, len(v.Path))
	}
	col := func(width int) lipgloss.Style { return lipgloss.NewStyle().Width(width + 2) }

	header := col(nameWidth).Render("NAME") + col(6).Render("METHOD") + col(pathWidth).Render("PATH") + "REQUIRED"
	if _, err := fmt.Fprintln(w, shared.Header.Render(header)); err != nil {
		return err
	}
	for _, v := range views {
		line := col(nameWidth).Render(v.Name) + col(6).Render(v.Method) + col(pathWidth).Render(v.Path) +
			shared.Muted.Render(strings.Join(v.Required, ", "))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
