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

// Package jsapi implements the signing commands: jsapi-config,
// normalize-url and sign.
package jsapi

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

// NewJSAPIConfigCommand creates the jsapi-config command.
func NewJSAPIConfigCommand() *cobra.Command {
	var (
		opts  sdk.JSAPIOptions
		extra []string
	)

	cmd := &cobra.Command{
		Use:   "jsapi-config <url>",
		Short: "Build a signed JSAPI config for a page",
		Long: `Build the config object a page passes to dd.config. The page URL is
normalized before signing; the ticket is fetched unless --ticket is given.`,
		Example: `  dingtalk jsapi-config "https://app.example.com/page?x=1#top"
  dingtalk jsapi-config https://app.example.com/ --nonce abc --timestamp 1700000000000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.ValidateJQ(); err != nil {
				return err
			}
			fields, err := parsePairs(extra)
			if err != nil {
				return err
			}
			opts.Extra = fields

			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			cfg, err := env.Client.JSAPIConfig(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return shared.Print(cmd, cfg, nil)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.TicketType, "type", "", "Ticket type (default jsapi)")
	f.StringVar(&opts.Ticket, "ticket", "", "Sign with this ticket instead of fetching one")
	f.StringVar(&opts.NonceStr, "nonce", "", "Nonce string (default <prefix>#<unix ms>)")
	f.Int64Var(&opts.Timestamp, "timestamp", 0, "Timestamp in unix milliseconds (default now)")
	f.StringArrayVar(&extra, "field", nil, "Extra signed field as key=value (repeatable)")
	return cmd
}

// NewNormalizeURLCommand creates the normalize-url command.
func NewNormalizeURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-url <url>",
		Short: "Normalize a URL the way JSAPI signing does",
		Long: `Drop the fragment and decode the query string of a URL, producing the
exact string that is signed for a JSAPI config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized := sdk.NormalizeURL(args[0])
			out := struct {
				URL        string `json:"url"`
				Normalized string `json:"normalized"`
			}{args[0], normalized}
			return shared.Print(cmd, out, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, normalized)
				return err
			})
		},
	}
}

// NewSignCommand creates the sign command with its hmac and hash subcommands.
func NewSignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute request signatures",
	}
	cmd.AddCommand(newDigestCommand("hmac", "HMAC of <string> keyed by --secret", sdk.SHA256, sdk.SignatureHMAC))
	cmd.AddCommand(newDigestCommand("hash", "Digest of <string> followed by --secret", sdk.SHA1, sdk.SignatureHash))
	return cmd
}

type digestFunc func(str, secret string, alg sdk.HashAlgorithm, enc sdk.Encoding) (string, error)

func newDigestCommand(name, short string, defaultAlg sdk.HashAlgorithm, digest digestFunc) *cobra.Command {
	var secret, alg, enc string

	cmd := &cobra.Command{
		Use:   name + " <string>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := digest(args[0], secret, sdk.HashAlgorithm(alg), sdk.Encoding(enc))
			if err != nil {
				return err
			}
			out := struct {
				Algorithm string `json:"algorithm"`
				Encoding  string `json:"encoding"`
				Signature string `json:"signature"`
			}{strings.ToLower(alg), strings.ToLower(enc), sig}
			return shared.Print(cmd, out, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, sig)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret")
	cmd.Flags().StringVar(&alg, "alg", string(defaultAlg), "Hash algorithm: md5, sha1, sha256 or sha512")
	cmd.Flags().StringVar(&enc, "enc", string(sdk.Hex), "Output encoding: hex or base64")
	return cmd
}

func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, shared.NewUsageError(fmt.Sprintf("invalid field %q", p), fmt.Errorf("expected key=value"))
		}
		out[k] = v
	}
	return out, nil
}
