// Package cmd implements the photorest CLI commands using Cobra.
//
// Available commands:
//   - get: Call an API method over GET and print the JSON envelope
//   - post: Call an API method over POST and print the decoded body
//   - map: Call an API method and print the key/value pairs of the body
//   - encode: Print parameters form-encoded without sending anything
//   - bench: Drive one API method at a fixed rate and report latencies
//   - mock: Start a fake photo REST service
//   - proxy: Start an authenticating, recording forward proxy
//   - init: Write a starter .photorest.yaml
//   - version: Show photorest version information
//
// Connection settings come from a config file, PHOTOREST_* environment
// variables and flags, in increasing order of precedence.
package cmd
