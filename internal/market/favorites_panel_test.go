package market

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/stretchr/testify/require"
)

func assetIDs(assets []models.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

func TestFavoritesPanel_FollowsStore(t *testing.T) {
	store, _ := newFavorites(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "bitcoin"))

	p := NewFavoritesPanel(store, &fakeSource{}, time.Second, common.NewSilentLogger(), nil)
	defer p.Close()

	require.Eventually(t, func() bool {
		st := p.State()
		return !st.Loading && len(st.Assets) == 1
	}, eventually, tick)

	_, err := store.Toggle(ctx, "ethereum")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(p.State().Assets) == 2
	}, eventually, tick)
	require.Equal(t, []string{"bitcoin", "ethereum"}, assetIDs(p.State().Assets))

	_, err = store.Toggle(ctx, "bitcoin")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st := p.State()
		return len(st.IDs) == 1 && len(st.Assets) == 1 && st.Assets[0].ID == "ethereum"
	}, eventually, tick)
}

func TestFavoritesPanel_DropsFailedItems(t *testing.T) {
	store, _ := newFavorites(t)
	ctx := context.Background()
	for _, id := range []string{"bitcoin", "delisted", "solana"} {
		require.NoError(t, store.Add(ctx, id))
	}

	src := &fakeSource{asset: func(ctx context.Context, id string) (*models.Asset, error) {
		if id == "delisted" {
			return nil, errUpstream
		}
		return &models.Asset{ID: id}, nil
	}}
	p := NewFavoritesPanel(store, src, time.Second, common.NewSilentLogger(), nil)
	defer p.Close()

	require.Eventually(t, func() bool { return !p.State().Loading }, eventually, tick)
	st := p.State()
	require.Equal(t, []string{"bitcoin", "delisted", "solana"}, st.IDs)
	require.Equal(t, []string{"bitcoin", "solana"}, assetIDs(st.Assets))
}

func TestFavoritesPanel_SupersededRefreshDiscarded(t *testing.T) {
	store, _ := newFavorites(t)
	release := make(chan struct{})
	src := &fakeSource{asset: func(ctx context.Context, id string) (*models.Asset, error) {
		if id == "slow" {
			<-release
		}
		return &models.Asset{ID: id}, nil
	}}
	p := NewFavoritesPanel(store, src, time.Second, common.NewSilentLogger(), nil)
	defer p.Close()

	p.Refresh([]string{"slow"})
	p.Refresh([]string{"fast"})
	require.Eventually(t, func() bool { return !p.State().Loading }, eventually, tick)

	close(release)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, []string{"fast"}, assetIDs(p.State().Assets))
}

func TestFavoritesPanel_EmptySet(t *testing.T) {
	store, _ := newFavorites(t)
	src := &fakeSource{}
	p := NewFavoritesPanel(store, src, time.Second, common.NewSilentLogger(), nil)
	defer p.Close()

	st := p.State()
	require.False(t, st.Loading)
	require.Empty(t, st.Assets)
	require.Empty(t, src.assets())
}

func TestFavoritesPanel_CloseUnsubscribes(t *testing.T) {
	store, _ := newFavorites(t)
	p := NewFavoritesPanel(store, &fakeSource{}, time.Second, common.NewSilentLogger(), nil)
	require.Equal(t, 1, store.Hub().Subscribers())

	p.Close()
	require.Equal(t, 0, store.Hub().Subscribers())
}
