// Package simulator produces randomized, illustrative investment outcomes.
// Results are drawn from a toy model with fixed per-asset parameters; they
// are not predictions and not financial advice.
package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Disclaimer accompanies every result.
const Disclaimer = "Randomized illustration only. This is not a prediction of future returns and not financial advice."

// Model constants.
const (
	BullThreshold = 0.3 // market condition draws at or above this are bull markets
	MinMultiplier = 0.1 // final value never drops below 10% of the investment
	MaxInvestment = 1_000_000
)

// Scenario labels.
const (
	ScenarioBullRally  = "Bull Market Rally"
	ScenarioSteady     = "Steady Growth"
	ScenarioCorrection = "Bear Market Correction"
	ScenarioDownturn   = "Market Downturn"
)

// Risk levels by volatility.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

var (
	ErrInvalidInvestment = errors.New("investment must be greater than 0 and at most 1,000,000")
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrUnknownTimeframe  = errors.New("unknown timeframe")
)

// Request is one simulation input.
type Request struct {
	Investment float64 `json:"investment"`
	Asset      string  `json:"asset"`
	Timeframe  string  `json:"timeframe"`
}

// Result is one simulated outcome. Money values are rounded to cents.
type Result struct {
	InitialInvestment decimal.Decimal `json:"initial_investment"`
	FinalValue        decimal.Decimal `json:"final_value"`
	Profit            decimal.Decimal `json:"profit"`
	ProfitPercentage  decimal.Decimal `json:"profit_percentage"`
	IsProfit          bool            `json:"is_profit"`
	Asset             string          `json:"asset"`
	Symbol            string          `json:"symbol"`
	Timeframe         string          `json:"timeframe"`
	Scenario          string          `json:"scenario"`
	RiskLevel         string          `json:"risk_level"`
	BullMarket        bool            `json:"bull_market"`
	Multiplier        float64         `json:"multiplier"`
	Disclaimer        string          `json:"disclaimer"`
}

// Simulator draws outcomes from Tables.
type Simulator struct {
	tables *Tables
	draw   func() float64
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithRand replaces the uniform [0,1) source.
func WithRand(fn func() float64) Option {
	return func(s *Simulator) { s.draw = fn }
}

// New creates a simulator. A nil tables uses DefaultTables.
func New(tables *Tables, opts ...Option) *Simulator {
	if tables == nil {
		tables = DefaultTables()
	}
	s := &Simulator{tables: tables, draw: rand.Float64}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tables returns the profiles the simulator draws from.
func (s *Simulator) Tables() *Tables {
	return s.tables
}

// Simulate draws one outcome for req.
//
// Three uniform draws drive the model: u1 picks the market condition (bull
// when u1 >= BullThreshold), u2 a volatility factor 1+(u2-0.5)*volatility and
// u3 the regime boost (bull 1.2+0.8*u3, bear 0.3+0.4*u3).
func (s *Simulator) Simulate(req Request) (*Result, error) {
	if math.IsNaN(req.Investment) || req.Investment <= 0 || req.Investment > MaxInvestment {
		return nil, ErrInvalidInvestment
	}
	asset, ok := s.tables.Asset(req.Asset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, req.Asset)
	}
	tf, ok := s.tables.Timeframe(req.Timeframe)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeframe, req.Timeframe)
	}

	u1, u2, u3 := s.draw(), s.draw(), s.draw()
	bull := u1 >= BullThreshold
	volatilityFactor := 1 + (u2-0.5)*asset.Volatility

	expected := asset.BaseMultiplier * tf.Multiplier
	multiplier := expected
	if bull {
		multiplier *= 1.2 + u3*0.8
	} else {
		multiplier *= 0.3 + u3*0.4
	}
	multiplier *= volatilityFactor

	investment := decimal.NewFromFloat(req.Investment)
	final := investment.Mul(decimal.NewFromFloat(math.Max(MinMultiplier, multiplier)))
	profit := final.Sub(investment)

	return &Result{
		InitialInvestment: investment.Round(2),
		FinalValue:        final.Round(2),
		Profit:            profit.Round(2),
		ProfitPercentage:  profit.Div(investment).Mul(decimal.NewFromInt(100)).Round(2),
		IsProfit:          !profit.IsNegative(),
		Asset:             asset.Name,
		Symbol:            asset.Symbol,
		Timeframe:         tf.Label,
		Scenario:          scenario(bull, multiplier, expected),
		RiskLevel:         riskLevel(asset.Volatility),
		BullMarket:        bull,
		Multiplier:        multiplier,
		Disclaimer:        Disclaimer,
	}, nil
}

func scenario(bull bool, multiplier, expected float64) string {
	switch {
	case bull && multiplier > expected*1.5:
		return ScenarioBullRally
	case bull:
		return ScenarioSteady
	case multiplier < expected*0.5:
		return ScenarioCorrection
	default:
		return ScenarioDownturn
	}
}

func riskLevel(volatility float64) string {
	switch {
	case volatility > 0.5:
		return RiskHigh
	case volatility > 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}
