package mcp

import (
	"context"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// versionInfo holds version fields for one component.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// VersionCatalogTool describes the get_version tool.
func VersionCatalogTool() CatalogTool {
	return CatalogTool{
		Name:        "get_version",
		Description: "Get coinboard server version. Use this to verify connectivity.",
	}
}

// VersionToolHandler returns the build information of this server.
func VersionToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]versionInfo{
			"coinboard": {
				Version: common.GetVersion(),
				Build:   common.GetBuild(),
				Commit:  common.GetGitCommit(),
			},
		}), nil
	}
}
