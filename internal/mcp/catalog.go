package mcp

import (
	"fmt"
	"regexp"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogTool describes one tool the endpoint exposes.
type CatalogTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Params      []CatalogParam `json:"params"`
}

// CatalogParam describes one parameter for a catalog tool.
type CatalogParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

var toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// catalogEntry pairs a tool description with its implementation.
type catalogEntry struct {
	tool    CatalogTool
	handler server.ToolHandlerFunc
}

// ValidateCatalogTool validates a single catalog tool entry.
func ValidateCatalogTool(ct CatalogTool) error {
	if ct.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if !toolNamePattern.MatchString(ct.Name) {
		return fmt.Errorf("tool %q has invalid name", ct.Name)
	}
	if ct.Description == "" {
		return fmt.Errorf("tool %q has empty description", ct.Name)
	}
	seen := make(map[string]bool, len(ct.Params))
	for _, p := range ct.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %q has a parameter with empty name", ct.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %q has duplicate parameter %q", ct.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// validateCatalog drops invalid or duplicate entries, logging a warning for each.
func validateCatalog(entries []catalogEntry, logger *common.Logger) []catalogEntry {
	seen := make(map[string]bool, len(entries))
	valid := make([]catalogEntry, 0, len(entries))
	for _, e := range entries {
		if err := ValidateCatalogTool(e.tool); err != nil {
			logger.Warn().Str("error", err.Error()).Msg("skipping invalid catalog tool")
			continue
		}
		if seen[e.tool.Name] {
			logger.Warn().Str("name", e.tool.Name).Msg("skipping duplicate catalog tool")
			continue
		}
		seen[e.tool.Name] = true
		valid = append(valid, e)
	}
	return valid
}

// BuildMCPTool converts a CatalogTool into an mcp.Tool with the appropriate schema.
func BuildMCPTool(ct CatalogTool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(ct.Description)}
	for _, p := range ct.Params {
		opts = append(opts, buildParamOption(p))
	}
	return mcp.NewTool(ct.Name, opts...)
}

// buildParamOption maps a CatalogParam to the appropriate mcp-go tool option.
func buildParamOption(p CatalogParam) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if p.Description != "" {
		opts = append(opts, mcp.Description(p.Description))
	}
	if p.Required {
		opts = append(opts, mcp.Required())
	}

	switch p.Type {
	case "number":
		return mcp.WithNumber(p.Name, opts...)
	case "boolean":
		return mcp.WithBoolean(p.Name, opts...)
	case "array":
		opts = append([]mcp.PropertyOption{mcp.WithStringItems()}, opts...)
		return mcp.WithArray(p.Name, opts...)
	default:
		return mcp.WithString(p.Name, opts...)
	}
}
