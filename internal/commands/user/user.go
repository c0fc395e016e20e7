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

package user

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

// NewUserCommand creates the user command.
func NewUserCommand() *cobra.Command {
	var (
		mobile  string
		unionID string
	)

	cmd := &cobra.Command{
		Use:   "user [userid]",
		Short: "Show a member of the corp directory",
		Long: `Show a member of the corp directory by user ID, or resolve the user ID
from a phone number (--mobile) or union ID (--unionid) first.`,
		Example: `  dingtalk user manager4220
  dingtalk user --mobile 13800000000 --jq .name`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.ValidateJQ(); err != nil {
				return err
			}

			given := 0
			for _, s := range []string{mobile, unionID, strings.Join(args, "")} {
				if s != "" {
					given++
				}
			}
			if given != 1 {
				return &sdk.ValidationError{
					Field:      "userid",
					Message:    "exactly one of userid, --mobile or --unionid is required",
					Suggestion: "dingtalk user <userid>",
				}
			}

			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			var userID string
			switch {
			case mobile != "":
				userID, err = env.Client.UserIDByMobile(ctx, mobile)
			case unionID != "":
				userID, err = env.Client.UserIDByUnionID(ctx, unionID)
			default:
				userID = args[0]
			}
			if err != nil {
				return err
			}

			u, err := env.Client.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			return shared.Print(cmd, u, func(w io.Writer) error {
				fmt.Fprintln(w, shared.Header.Render(u.Name))
				fmt.Fprintln(w, shared.RenderField("userid", u.UserID))
				if u.Mobile != "" {
					fmt.Fprintln(w, shared.RenderField("mobile", u.Mobile))
				}
				if u.Email != "" {
					fmt.Fprintln(w, shared.RenderField("email", u.Email))
				}
				if u.Position != "" {
					fmt.Fprintln(w, shared.RenderField("position", u.Position))
				}
				if len(u.Department) > 0 {
					ids := make([]string, len(u.Department))
					for i, d := range u.Department {
						ids[i] = strconv.FormatInt(d, 10)
					}
					fmt.Fprintln(w, shared.RenderField("departments", strings.Join(ids, ", ")))
				}
				fmt.Fprintln(w, shared.RenderField("active", strconv.FormatBool(u.Active)))
				if u.IsAdmin {
					fmt.Fprintln(w, shared.RenderField("admin", "true"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mobile, "mobile", "", "Look the user up by phone number")
	cmd.Flags().StringVar(&unionID, "unionid", "", "Look the user up by union ID")
	return cmd
}
