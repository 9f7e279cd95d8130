package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// registerTools adds every catalog entry to s and returns the registered descriptions.
func registerTools(s *server.MCPServer, entries []catalogEntry) []CatalogTool {
	registered := make([]CatalogTool, 0, len(entries))
	for _, e := range entries {
		s.AddTool(BuildMCPTool(e.tool), e.handler)
		registered = append(registered, e.tool)
	}
	return registered
}
