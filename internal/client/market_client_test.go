package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListings_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cryptocurrencies" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "1" || r.URL.Query().Get("per_page") != "50" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "bitcoin", "symbol": "btc", "current_price": 67000.0},
		})
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	assets, err := c.Listings(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "bitcoin" {
		t.Errorf("unexpected assets: %+v", assets)
	}
}

func TestAsset_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"asset not found"}`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	_, err := c.Asset(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	se := err.(*StatusError)
	if se.Message != "asset not found" {
		t.Errorf("expected envelope message, got %q", se.Message)
	}
}

func TestAsset_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch cryptocurrency"}`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	_, err := c.Asset(context.Background(), "bitcoin")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsNotFound(err) {
		t.Error("500 must not be reported as not found")
	}
}

func TestAssetDetail_EscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/crypto-detail/a%2Fb" {
			t.Errorf("expected escaped id, got %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"id":"a/b","market_data":{"current_price":{"usd":2}}}`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	d, err := c.AssetDetail(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Asset().CurrentPrice != 2 {
		t.Errorf("unexpected detail: %+v", d)
	}
}

func TestPriceHistory_PassesDays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("days") != "30" {
			t.Errorf("expected days=30, got %s", r.URL.Query().Get("days"))
		}
		w.Write([]byte(`{"prices":[[1700000000000,100.5],[1700086400000,101]]}`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	h, err := c.PriceHistory(context.Background(), "bitcoin", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Prices) != 2 || h.Prices[0].Timestamp != 1700000000000 {
		t.Errorf("unexpected history: %+v", h)
	}
}

func TestSearch_ReturnsCoins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "eth" {
			t.Errorf("expected q=eth, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"coins":[{"id":"ethereum","name":"Ethereum","symbol":"ETH","thumb":"e.png"}]}`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	coins, err := c.Search(context.Background(), "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coins) != 1 || coins[0].ID != "ethereum" {
		t.Errorf("unexpected coins: %+v", coins)
	}
}

func TestGlobal_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{{{`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second)
	if _, err := c.Global(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Search(ctx, "bit"); err == nil {
		t.Error("expected error on cancelled context")
	}
}
