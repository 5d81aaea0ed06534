// Package catalog loads the set of bonuses a round can hand out.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/playperu/bonuslights/internal/garland"
)

var ErrEmpty = errors.New("catalog has no bonuses")

// rawFile mirrors the YAML catalog file:
//
//	bonuses:
//	  - label: "150% bonus"
//	    value: 150
//	    weight: 0.35
type rawFile struct {
	Bonuses []rawBonus `yaml:"bonuses"`
}

type rawBonus struct {
	Label  string   `yaml:"label"`
	Value  string   `yaml:"value"`
	Weight *float64 `yaml:"weight"`
}

// Default is the built-in catalog.
func Default() []garland.Bonus {
	return []garland.Bonus{
		bonus("150% bonus", 150),
		bonus("100% bonus", 100),
		bonus("200% bonus", 200),
		bonus("50% bonus", 50),
		bonus("250% bonus", 250),
		bonus("75% bonus", 75),
		bonus("300% bonus", 300),
	}
}

func bonus(label string, value int64) garland.Bonus {
	return garland.Bonus{Label: label, Value: decimal.NewFromInt(value), Weight: 1}
}

// Load reads a YAML catalog from path, or returns Default when path is empty.
func Load(path string) ([]garland.Bonus, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]garland.Bonus, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if len(raw.Bonuses) == 0 {
		return nil, ErrEmpty
	}

	out := make([]garland.Bonus, 0, len(raw.Bonuses))
	for i, rb := range raw.Bonuses {
		label := strings.TrimSpace(rb.Label)
		if label == "" {
			return nil, fmt.Errorf("bonus %d: label is required", i)
		}
		value := decimal.Zero
		if v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rb.Value), "%")); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("bonus %d: parsing value %q: %w", i, rb.Value, err)
			}
			value = d
		}
		weight := 1.0
		if rb.Weight != nil {
			weight = *rb.Weight
		}
		if weight < 0 {
			return nil, fmt.Errorf("bonus %d: weight must not be negative", i)
		}
		out = append(out, garland.Bonus{Label: label, Value: value, Weight: weight})
	}
	return out, nil
}
