package simulator

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

// AssetProfile is the per-asset input to the return model.
type AssetProfile struct {
	ID             string  `yaml:"id" json:"id"`
	Name           string  `yaml:"name" json:"name"`
	Symbol         string  `yaml:"symbol" json:"symbol"`
	BaseMultiplier float64 `yaml:"base_multiplier" json:"base_multiplier"`
	Volatility     float64 `yaml:"volatility" json:"volatility"`
}

// TimeframeProfile scales the base multiplier for a holding period.
type TimeframeProfile struct {
	Key        string  `yaml:"key" json:"key"`
	Label      string  `yaml:"label" json:"label"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Tables holds the asset and timeframe profiles.
type Tables struct {
	Assets     []AssetProfile     `yaml:"assets" json:"assets"`
	Timeframes []TimeframeProfile `yaml:"timeframes" json:"timeframes"`
}

// LoadTables parses profile tables from YAML.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(t.Assets) == 0 || len(t.Timeframes) == 0 {
		return nil, fmt.Errorf("profiles need at least one asset and one timeframe")
	}
	for _, a := range t.Assets {
		if a.ID == "" || a.BaseMultiplier <= 0 || a.Volatility < 0 {
			return nil, fmt.Errorf("invalid asset profile %q", a.ID)
		}
	}
	for _, tf := range t.Timeframes {
		if tf.Key == "" || tf.Multiplier <= 0 {
			return nil, fmt.Errorf("invalid timeframe profile %q", tf.Key)
		}
	}
	return &t, nil
}

// DefaultTables returns the built-in profiles.
func DefaultTables() *Tables {
	t, err := LoadTables(profilesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Asset looks up an asset profile by id.
func (t *Tables) Asset(id string) (AssetProfile, bool) {
	for _, a := range t.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return AssetProfile{}, false
}

// Timeframe looks up a timeframe profile by key.
func (t *Tables) Timeframe(key string) (TimeframeProfile, bool) {
	for _, tf := range t.Timeframes {
		if tf.Key == key {
			return tf, true
		}
	}
	return TimeframeProfile{}, false
}
