package server

import (
	"net/http"

	"github.com/bobmcallan/coinboard/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	a := s.app

	// MCP endpoint (JSON-RPC over HTTP)
	if a.MCPHandler != nil {
		mux.Handle("/mcp", a.MCPHandler)
	}

	// Proxy routes
	mux.HandleFunc(handlers.ListingsPath, a.MarketHandler.Listings)
	mux.HandleFunc(handlers.AssetPath, a.MarketHandler.Asset)
	mux.HandleFunc(handlers.DetailPath, a.MarketHandler.Detail)
	mux.HandleFunc(handlers.HistoryPath, a.MarketHandler.History)
	mux.HandleFunc(handlers.GlobalPath, a.MarketHandler.Global)
	mux.HandleFunc(handlers.SearchPath, a.MarketHandler.Search)

	// Favorites and recent searches
	mux.HandleFunc(handlers.FavoritesPath, func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, a.FavoritesHandler.List, nil, a.FavoritesHandler.Clear)
	})
	mux.HandleFunc(handlers.FavoritesPath+"/", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceItem(w, r, nil, a.FavoritesHandler.Item, a.FavoritesHandler.Item)
	})
	mux.HandleFunc(handlers.RecentPath, a.RecentHandler.ServeHTTP)

	// Simulator
	mux.HandleFunc(handlers.SimulatePath, a.SimulateHandler.Simulate)
	mux.HandleFunc(handlers.ProfilesPath, a.SimulateHandler.Profiles)

	// Session stream
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	mux.HandleFunc("/api/health", a.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", a.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "The requested endpoint does not exist")
}
