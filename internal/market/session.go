package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
)

// Session command types.
const (
	CmdSearch         = "search"
	CmdHeaderSearch   = "header_search"
	CmdSelectResult   = "select_result"
	CmdDismiss        = "dismiss"
	CmdAdd            = "add"
	CmdRemove         = "remove"
	CmdTimeframe      = "timeframe"
	CmdToggleFavorite = "toggle_favorite"
	CmdClearRecent    = "clear_recent"
)

// ErrUnknownCommand is returned by Handle for an unrecognised command type.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one client instruction.
type Command struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
	ID    string `json:"id,omitempty"`
	Days  int    `json:"days,omitempty"`
}

// State is the full snapshot pushed to a session's client.
type State struct {
	Seq            uint64                `json:"seq"`
	HeaderSearch   SearchState           `json:"header_search"`
	Comparison     ComparisonState       `json:"comparison"`
	Favorites      FavoritesState        `json:"favorites"`
	RecentSearches []models.SearchResult `json:"recent_searches"`
	Popular        []models.SearchResult `json:"popular"`
	Focus          string                `json:"focus,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// SessionConfig holds per-session tunables.
type SessionConfig struct {
	HeaderDebounce time.Duration
	MinQueryLength int
	HeaderResults  int
	CompareResults int
	RequestTimeout time.Duration
}

// SessionDeps are the process-wide components a session shares.
type SessionDeps struct {
	Source    DataSource
	Favorites *FavoritesStore
	Recent    *RecentSearches
	Config    SessionConfig
	Logger    *common.Logger
}

// Session is one connected client's view: header search, comparison,
// favorites panel and recent searches. State changes are coalesced and
// delivered to publish from a single goroutine, in order.
type Session struct {
	mu        sync.Mutex
	favorites *FavoritesStore
	recent    *RecentSearches
	header    *Search
	compare   *Comparison
	panel     *FavoritesPanel
	logger    *common.Logger

	seq     uint64
	focus   string
	lastErr string

	ctx     context.Context
	cancel  context.CancelFunc
	notify  chan struct{}
	done    chan struct{}
	publish func(State)
}

// NewSession creates a session and starts its publisher. publish receives
// the initial state and every state after a change.
func NewSession(deps SessionDeps, publish func(State)) *Session {
	cfg := deps.Config
	if cfg.HeaderResults <= 0 {
		cfg.HeaderResults = HeaderResultLimit
	}
	if cfg.HeaderDebounce <= 0 {
		cfg.HeaderDebounce = DefaultHeaderDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		favorites: deps.Favorites,
		recent:    deps.Recent,
		logger:    deps.Logger,
		ctx:       ctx,
		cancel:    cancel,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		publish:   publish,
	}

	s.header = NewSearch(deps.Source, SearchConfig{
		Debounce:  cfg.HeaderDebounce,
		MinLength: cfg.MinQueryLength,
		Limit:     cfg.HeaderResults,
		Timeout:   cfg.RequestTimeout,
	}, deps.Logger, s.changed)
	s.compare = NewComparison(deps.Source, deps.Recent, ComparisonConfig{
		MinQueryLength: cfg.MinQueryLength,
		ResultLimit:    cfg.CompareResults,
		RequestTimeout: cfg.RequestTimeout,
	}, deps.Logger, s.changed)
	s.panel = NewFavoritesPanel(deps.Favorites, deps.Source, cfg.RequestTimeout, deps.Logger, s.changed)

	go s.run()
	s.changed()
	return s
}

// Handle applies cmd. Commands that fetch data return immediately; their
// outcome arrives in a later State.
func (s *Session) Handle(cmd Command) error {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	switch cmd.Type {
	case CmdSearch:
		s.compare.Search().SetQuery(cmd.Query)
	case CmdHeaderSearch:
		s.header.SetQuery(cmd.Query)
	case CmdSelectResult:
		if cmd.ID == "" {
			return fmt.Errorf("%s: id is required", cmd.Type)
		}
		s.header.Clear()
		s.setFocus(cmd.ID)
	case CmdDismiss:
		s.header.Clear()
	case CmdAdd:
		if cmd.ID == "" {
			return fmt.Errorf("%s: id is required", cmd.Type)
		}
		candidate := s.candidate(cmd.ID)
		go func() {
			if _, err := s.compare.Add(s.ctx, candidate); err != nil {
				s.setError(err)
			}
		}()
	case CmdRemove:
		s.compare.Remove(cmd.ID)
	case CmdTimeframe:
		tf, err := models.TimeframeForDays(cmd.Days)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Type, err)
		}
		if err := s.compare.SetTimeframe(tf); err != nil {
			return err
		}
	case CmdToggleFavorite:
		if cmd.ID == "" {
			return fmt.Errorf("%s: id is required", cmd.Type)
		}
		if _, err := s.favorites.Toggle(s.ctx, cmd.ID); err != nil {
			return err
		}
	case CmdClearRecent:
		if err := s.recent.Clear(s.ctx); err != nil {
			return err
		}
		s.changed()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return nil
}

// candidate resolves id to the richest SearchResult the session knows of.
func (s *Session) candidate(id string) models.SearchResult {
	if r, ok := s.compare.Search().Result(id); ok {
		return r
	}
	for _, r := range s.recent.Items() {
		if r.ID == id {
			return r
		}
	}
	for _, r := range PopularAssets {
		if r.ID == id {
			return r
		}
	}
	return models.SearchResult{ID: id, Name: id}
}

// State builds a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	s.seq++
	seq, focus, lastErr := s.seq, s.focus, s.lastErr
	s.mu.Unlock()

	return State{
		Seq:            seq,
		HeaderSearch:   s.header.State(),
		Comparison:     s.compare.State(),
		Favorites:      s.panel.State(),
		RecentSearches: s.recent.Items(),
		Popular:        PopularAssets,
		Focus:          focus,
		Error:          lastErr,
	}
}

// Close stops every component and the publisher.
func (s *Session) Close() {
	s.cancel()
	s.header.Close()
	s.compare.Close()
	s.panel.Close()
	<-s.done
}

func (s *Session) setFocus(id string) {
	s.mu.Lock()
	s.focus = id
	s.mu.Unlock()
	s.changed()
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.changed()
}

func (s *Session) changed() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.notify:
			if s.publish != nil {
				s.publish(s.State())
			}
		}
	}
}
