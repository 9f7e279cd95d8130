package market

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
)

// Search flow defaults.
const (
	DefaultMinQueryLength = 2
	DefaultHeaderDebounce = 300 * time.Millisecond
	HeaderResultLimit     = 5
	CompareResultLimit    = 8
)

// SearchConfig configures one search flow.
type SearchConfig struct {
	Debounce  time.Duration // zero issues the query immediately
	MinLength int           // trimmed queries shorter than this never reach the source
	Limit     int           // results kept per response
	Timeout   time.Duration // per-query bound
}

// SearchState is a snapshot of a search flow.
type SearchState struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Loading bool                  `json:"loading"`
	Open    bool                  `json:"open"`
}

// Search runs free-text queries against a DataSource. Only the response to
// the latest query is ever committed: each query change bumps a generation
// counter, and a response whose generation is no longer current is dropped.
type Search struct {
	mu     sync.Mutex
	src    DataSource
	cfg    SearchConfig
	logger *common.Logger

	query   string
	results []models.SearchResult
	loading bool
	open    bool
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc

	onChange func()
}

// NewSearch creates a search flow. onChange, if set, runs after every state change.
func NewSearch(src DataSource, cfg SearchConfig, logger *common.Logger, onChange func()) *Search {
	if cfg.MinLength < 1 {
		cfg.MinLength = DefaultMinQueryLength
	}
	cfg.Timeout = requestTimeout(cfg.Timeout)
	return &Search{src: src, cfg: cfg, logger: logger, onChange: onChange}
}

// SetQuery replaces the query. Any pending debounce timer is stopped and any
// in-flight request is superseded.
func (s *Search) SetQuery(query string) {
	s.mu.Lock()
	s.supersede()
	s.query = query
	gen := s.gen

	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < s.cfg.MinLength {
		s.results = nil
		s.loading = false
		s.open = false
		s.mu.Unlock()
		s.changed()
		return
	}

	s.loading = true
	if s.cfg.Debounce > 0 {
		s.timer = time.AfterFunc(s.cfg.Debounce, func() { s.fetch(gen, trimmed) })
	} else {
		go s.fetch(gen, trimmed)
	}
	s.mu.Unlock()
	s.changed()
}

// Clear empties the query and results and closes the result panel.
func (s *Search) Clear() {
	s.mu.Lock()
	s.supersede()
	s.query = ""
	s.results = nil
	s.loading = false
	s.open = false
	s.mu.Unlock()
	s.changed()
}

// Result returns the current result with the given id.
func (s *Search) Result(id string) (models.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return models.SearchResult{}, false
}

// State returns a snapshot of the flow.
func (s *Search) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchState{
		Query:   s.query,
		Results: append([]models.SearchResult{}, s.results...),
		Loading: s.loading,
		Open:    s.open,
	}
}

// Close stops pending work. Responses arriving afterwards are dropped.
func (s *Search) Close() {
	s.mu.Lock()
	s.supersede()
	s.onChange = nil
	s.mu.Unlock()
}

// supersede invalidates the current generation. Must be called with mu held.
func (s *Search) supersede() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Search) fetch(gen uint64, query string) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	s.cancel = cancel
	s.mu.Unlock()

	results, err := s.src.Search(ctx, query)
	cancel()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug().Str("query", query).Msg("dropping stale search response")
		return
	}
	s.cancel = nil
	s.loading = false
	if err != nil {
		s.logger.Warn().Str("query", query).Err(err).Msg("search failed")
		s.results = nil
	} else {
		if len(results) > s.cfg.Limit && s.cfg.Limit > 0 {
			results = results[:s.cfg.Limit]
		}
		s.results = results
		s.open = true
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Search) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
