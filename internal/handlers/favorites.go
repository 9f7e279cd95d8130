package handlers

import (
	"net/http"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/market"
	"github.com/bobmcallan/coinboard/internal/models"
)

// FavoritesPath is the favorites collection route; items live under FavoritesPath + "/{id}".
const FavoritesPath = "/api/favorites"

// maxIDLength bounds asset ids accepted from clients.
const maxIDLength = 128

// FavoritesHandler exposes the favorites store over REST. Mutations go
// through the store, so open sessions see them on the hub.
type FavoritesHandler struct {
	store  *market.FavoritesStore
	logger *common.Logger
}

// NewFavoritesHandler creates a favorites handler.
func NewFavoritesHandler(store *market.FavoritesStore, logger *common.Logger) *FavoritesHandler {
	return &FavoritesHandler{store: store, logger: logger}
}

type favoritesResponse struct {
	IDs      []string `json:"ids"`
	ID       string   `json:"id,omitempty"`
	Favorite *bool    `json:"favorite,omitempty"`
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, favoritesResponse{IDs: h.ids()})
}

// Clear handles DELETE /api/favorites.
func (h *FavoritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to clear favorites")
		return
	}
	WriteJSON(w, http.StatusOK, favoritesResponse{IDs: h.ids()})
}

// Item handles PUT and DELETE /api/favorites/{id}. Both are idempotent.
func (h *FavoritesHandler) Item(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut, http.MethodDelete) {
		return
	}
	id := PathParam(r.URL.Path, FavoritesPath+"/")
	if id == "" || len(id) > maxIDLength {
		WriteError(w, http.StatusBadRequest, "Asset id is required")
		return
	}

	var err error
	favorite := r.Method == http.MethodPut
	if favorite {
		err = h.store.Add(r.Context(), id)
	} else {
		err = h.store.Remove(r.Context(), id)
	}
	if err != nil {
		h.logger.Error().Str("id", id).Str("method", r.Method).Err(err).Msg("favorite update failed")
		WriteError(w, http.StatusInternalServerError, "Failed to update favorites")
		return
	}
	WriteJSON(w, http.StatusOK, favoritesResponse{IDs: h.ids(), ID: id, Favorite: &favorite})
}

func (h *FavoritesHandler) ids() []string {
	ids := h.store.IDs()
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// RecentPath is the recent searches route.
const RecentPath = "/api/recent-searches"

// RecentHandler exposes the recent searches list.
type RecentHandler struct {
	recent *market.RecentSearches
	logger *common.Logger
}

// NewRecentHandler creates a recent searches handler.
func NewRecentHandler(recent *market.RecentSearches, logger *common.Logger) *RecentHandler {
	return &RecentHandler{recent: recent, logger: logger}
}

// ServeHTTP handles GET and DELETE /api/recent-searches.
func (h *RecentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	if r.Method == http.MethodDelete {
		if err := h.recent.Clear(r.Context()); err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to clear recent searches")
			return
		}
	}
	items := h.recent.Items()
	if items == nil {
		items = []models.SearchResult{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
