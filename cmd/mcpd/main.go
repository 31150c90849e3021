// Command mcpd starts an MCP runtime server over stdio or HTTP.
package main

import "github.com/airsstack-go/mcp-runtime/cmd/mcpd/cmd"

func main() {
	cmd.Execute()
}
