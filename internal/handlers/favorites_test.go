package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/market"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/bobmcallan/coinboard/internal/storage/memory"
)

func newFavoritesHandler(t *testing.T) (*FavoritesHandler, *market.FavoritesStore) {
	t.Helper()
	store, err := market.NewFavoritesStore(context.Background(), memory.NewKVStorage(), "test", market.NewHub(), common.NewSilentLogger())
	if err != nil {
		t.Fatalf("new favorites store: %v", err)
	}
	return NewFavoritesHandler(store, common.NewSilentLogger()), store
}

func do(h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeFavorites(t *testing.T, w *httptest.ResponseRecorder) favoritesResponse {
	t.Helper()
	var body favoritesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	return body
}

func TestFavoritesHandler_ListEmpty(t *testing.T) {
	h, _ := newFavoritesHandler(t)

	w := do(h.List, http.MethodGet, "/api/favorites")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"ids\":[]}\n" {
		t.Errorf("expected empty ids array, got %s", got)
	}
}

func TestFavoritesHandler_PutIsIdempotent(t *testing.T) {
	h, store := newFavoritesHandler(t)

	for i := 0; i < 2; i++ {
		w := do(h.Item, http.MethodPut, "/api/favorites/bitcoin")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeFavorites(t, w)
		if body.Favorite == nil || !*body.Favorite {
			t.Error("expected favorite=true")
		}
	}

	if ids := store.IDs(); len(ids) != 1 || ids[0] != "bitcoin" {
		t.Errorf("expected [bitcoin], got %v", ids)
	}
}

func TestFavoritesHandler_DeleteRemoves(t *testing.T) {
	h, store := newFavoritesHandler(t)
	do(h.Item, http.MethodPut, "/api/favorites/bitcoin")
	do(h.Item, http.MethodPut, "/api/favorites/ethereum")

	w := do(h.Item, http.MethodDelete, "/api/favorites/bitcoin")
	body := decodeFavorites(t, w)
	if body.Favorite == nil || *body.Favorite {
		t.Error("expected favorite=false")
	}
	if len(body.IDs) != 1 || body.IDs[0] != "ethereum" {
		t.Errorf("expected [ethereum], got %v", body.IDs)
	}

	w = do(h.Item, http.MethodDelete, "/api/favorites/bitcoin")
	if w.Code != http.StatusOK {
		t.Errorf("expected repeat delete to succeed, got %d", w.Code)
	}
	if store.IsFavorite("bitcoin") {
		t.Error("expected bitcoin to stay removed")
	}
}

func TestFavoritesHandler_PublishesOnHub(t *testing.T) {
	h, store := newFavoritesHandler(t)
	sub := store.Hub().Subscribe()
	defer sub.Close()

	do(h.Item, http.MethodPut, "/api/favorites/solana")

	select {
	case ids := <-sub.C:
		if len(ids) != 1 || ids[0] != "solana" {
			t.Errorf("expected [solana], got %v", ids)
		}
	default:
		t.Fatal("expected a snapshot on the hub")
	}
}

func TestFavoritesHandler_Clear(t *testing.T) {
	h, store := newFavoritesHandler(t)
	do(h.Item, http.MethodPut, "/api/favorites/bitcoin")

	w := do(h.Clear, http.MethodDelete, "/api/favorites")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(store.IDs()) != 0 {
		t.Errorf("expected no favorites, got %v", store.IDs())
	}
}

func TestFavoritesHandler_RejectsBadRequests(t *testing.T) {
	h, _ := newFavoritesHandler(t)

	if w := do(h.Item, http.MethodPut, "/api/favorites/"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing id, got %d", w.Code)
	}
	if w := do(h.Item, http.MethodPost, "/api/favorites/bitcoin"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", w.Code)
	}
}

func TestRecentHandler_GetAndClear(t *testing.T) {
	recent, err := market.NewRecentSearches(context.Background(), memory.NewKVStorage(), "test", common.NewSilentLogger())
	if err != nil {
		t.Fatalf("new recent searches: %v", err)
	}
	if err := recent.Push(context.Background(), models.SearchResult{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	h := NewRecentHandler(recent, common.NewSilentLogger())

	w := do(h.ServeHTTP, http.MethodGet, "/api/recent-searches")
	var body struct {
		Items []models.SearchResult `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].ID != "bitcoin" {
		t.Errorf("expected [bitcoin], got %+v", body.Items)
	}

	w = do(h.ServeHTTP, http.MethodDelete, "/api/recent-searches")
	if got := w.Body.String(); got != "{\"items\":[]}\n" {
		t.Errorf("expected empty items after clear, got %s", got)
	}
	if len(recent.Items()) != 0 {
		t.Error("expected store to be cleared")
	}
}
