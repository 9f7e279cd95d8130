// Package mcp exposes the market tools over the Model Context Protocol.
package mcp

import (
	"net/http"

	"github.com/bobmcallan/coinboard/internal/common"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	catalog    []CatalogTool
}

// NewServer builds the MCP server with every tool registered.
func NewServer(deps Deps, logger *common.Logger) (*mcpserver.MCPServer, []CatalogTool) {
	mcpSrv := mcpserver.NewMCPServer(
		"coinboard",
		common.GetVersion(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	t := &tools{deps: deps, logger: logger}
	registered := registerTools(mcpSrv, validateCatalog(t.catalog(), logger))
	return mcpSrv, registered
}

// NewHandler creates the MCP endpoint handler.
func NewHandler(deps Deps, logger *common.Logger) *Handler {
	mcpSrv, catalog := NewServer(deps, logger)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Int("tools", len(catalog)).
		Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
		catalog:    catalog,
	}
}

// Catalog returns a copy of the registered tool catalog.
func (h *Handler) Catalog() []CatalogTool {
	result := make([]CatalogTool, len(h.catalog))
	copy(result, h.catalog)
	return result
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
