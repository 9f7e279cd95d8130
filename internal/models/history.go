package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// PricePoint is one (timestamp, price) sample. It encodes as the provider's
// two-element array form: [1717200000000, 67012.5].
type PricePoint struct {
	Timestamp int64 // unix milliseconds
	Price     float64
}

// Time returns the sample time.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.Timestamp), p.Price})
}

func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("price point: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("price point: expected 2 elements, got %d", len(pair))
	}
	p.Timestamp = int64(pair[0])
	p.Price = pair[1]
	return nil
}

// PriceHistory is the body of the history route.
type PriceHistory struct {
	Prices []PricePoint `json:"prices"`
}

// SortPoints orders samples by ascending timestamp.
func SortPoints(points []PricePoint) {
	slices.SortStableFunc(points, func(a, b PricePoint) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
}

// Timeframe is a chart lookback window in days.
type Timeframe int

// Supported chart lookback windows.
const (
	Timeframe7D   Timeframe = 7
	Timeframe30D  Timeframe = 30
	Timeframe90D  Timeframe = 90
	Timeframe365D Timeframe = 365

	DefaultTimeframe = Timeframe7D
)

// Timeframes lists the supported windows in display order.
var Timeframes = []Timeframe{Timeframe7D, Timeframe30D, Timeframe90D, Timeframe365D}

// Days returns the lookback in days.
func (t Timeframe) Days() int {
	return int(t)
}

// Valid reports whether t is one of the supported windows.
func (t Timeframe) Valid() bool {
	return slices.Contains(Timeframes, t)
}

// TimeframeForDays returns the window spanning days, or an error when days
// is not a supported window.
func TimeframeForDays(days int) (Timeframe, error) {
	t := Timeframe(days)
	if !t.Valid() {
		return 0, fmt.Errorf("unsupported timeframe %d days", days)
	}
	return t, nil
}
