// Package whitelabel holds build metadata shared by the whitelabel commands.
package whitelabel

// Version is the release version reported by the CLI and the MCP server.
var Version = "0.1.0-dev"
