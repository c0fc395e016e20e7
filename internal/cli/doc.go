/*
Package cli builds the dingtalk command tree.

The commands themselves live in the internal/commands subpackages; this
package wires them under one root, owns the global flags and turns errors
into exit codes.

# Command Tree

	dingtalk
	├── token           Show the cached access token
	├── ticket          Show a JSAPI ticket
	├── jsapi-config    Build a signed JSAPI config for a page URL
	├── normalize-url   Normalize a URL the way signing does
	├── sign            HMAC and hash helpers
	├── call            Call an endpoint of the endpoint table
	├── endpoints       List the endpoint table
	├── send            Send a text message
	├── user            Look up a directory member
	├── configure       Interactive setup
	├── config          Show, locate or validate configuration
	├── doctor          Check configuration and credentials
	├── metrics         Print client metrics
	├── version         Show version
	└── help            Show help, as JSON with --json

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	cli.Execute()

# Global Flags

	--verbose, -v       Debug logging and detailed output
	--quiet, -q         Suppress non-error output
	--json              Output in JSON format
	--jq                Filter JSON output with a jq expression
	--config            Path to config file
	--store             Override store.type
	--trace-exporter    Override tracing.exporter

# Exit Codes

  - 0: Success
  - 1: General error
  - 2: Invalid usage or parameters
  - 3: Configuration error
  - 4: DingTalk API or transport error
*/
package cli
