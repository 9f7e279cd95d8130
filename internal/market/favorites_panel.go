package market

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
	"golang.org/x/sync/errgroup"
)

// maxDetailFetches bounds concurrent asset fetches for one panel refresh.
const maxDetailFetches = 8

// FavoritesState is a snapshot of the favorites panel.
type FavoritesState struct {
	IDs     []string       `json:"ids"`
	Assets  []models.Asset `json:"assets"`
	Loading bool           `json:"loading"`
}

// FavoritesPanel keeps asset records for the current favorites. It follows
// the store through a hub subscription and re-fetches on every snapshot;
// a refresh superseded by a newer snapshot is discarded.
type FavoritesPanel struct {
	mu      sync.Mutex
	src     DataSource
	timeout time.Duration
	logger  *common.Logger
	sub     *Subscription

	gen     uint64
	cancel  context.CancelFunc
	ids     []string
	assets  []models.Asset
	loading bool

	onChange func()
	done     chan struct{}
}

// NewFavoritesPanel subscribes to store's hub and loads the current favorites.
func NewFavoritesPanel(store *FavoritesStore, src DataSource, timeout time.Duration, logger *common.Logger, onChange func()) *FavoritesPanel {
	p := &FavoritesPanel{
		src:      src,
		timeout:  requestTimeout(timeout),
		logger:   logger,
		sub:      store.Hub().Subscribe(),
		ids:      []string{},
		assets:   []models.Asset{},
		onChange: onChange,
		done:     make(chan struct{}),
	}
	p.Refresh(store.IDs())

	go func() {
		defer close(p.done)
		for ids := range p.sub.C {
			p.Refresh(ids)
		}
	}()
	return p
}

// Refresh re-fetches asset records for ids. Records for ids no longer in the
// set are dropped immediately; per-asset fetch failures are skipped.
func (p *FavoritesPanel) Refresh(ids []string) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.ids = append([]string{}, ids...)
	p.assets = slices.DeleteFunc(slices.Clone(p.assets), func(a models.Asset) bool {
		return !slices.Contains(ids, a.ID)
	})

	if len(ids) == 0 {
		p.loading = false
		p.mu.Unlock()
		p.changed()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.loading = true
	p.mu.Unlock()
	p.changed()

	ids = slices.Clone(ids)
	go func() {
		defer cancel()
		assets := p.fetch(ctx, ids)

		p.mu.Lock()
		if gen != p.gen {
			p.mu.Unlock()
			return
		}
		p.assets = assets
		p.loading = false
		p.cancel = nil
		p.mu.Unlock()
		p.changed()
	}()
}

func (p *FavoritesPanel) fetch(ctx context.Context, ids []string) []models.Asset {
	results := make([]*models.Asset, len(ids))

	var g errgroup.Group
	g.SetLimit(maxDetailFetches)
	for i, id := range ids {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			a, err := p.src.Asset(fctx, id)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Warn().Str("id", id).Err(err).Msg("failed to fetch favorite")
				}
				return nil
			}
			results[i] = a
			return nil
		})
	}
	g.Wait()

	assets := make([]models.Asset, 0, len(ids))
	for _, a := range results {
		if a != nil {
			assets = append(assets, *a)
		}
	}
	return assets
}

// State returns a snapshot of the panel.
func (p *FavoritesPanel) State() FavoritesState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return FavoritesState{
		IDs:     slices.Clone(p.ids),
		Assets:  slices.Clone(p.assets),
		Loading: p.loading,
	}
}

// Close unsubscribes from the hub and waits for the listener to exit.
func (p *FavoritesPanel) Close() {
	p.mu.Lock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.onChange = nil
	p.mu.Unlock()

	p.sub.Close()
	<-p.done
}

func (p *FavoritesPanel) changed() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}
