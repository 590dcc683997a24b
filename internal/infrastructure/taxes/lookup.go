package taxes

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// hardDefaultRate is the statutory fallback when no table is configured at all.
const hardDefaultRate = 0.0625

// Table maps shipping states to sales-tax rates. A state may legitimately
// carry a zero rate.
type Table struct {
	DefaultRate float64            `yaml:"default_rate"`
	States      map[string]float64 `yaml:"states"`
}

// Lookup resolves tax rates with the fallback chain
// state entry -> configured default -> hard-coded default. It never fails a
// checkout over a missing rate.
type Lookup struct {
	table Table
}

func NewLookup(table Table) *Lookup {
	return &Lookup{table: table}
}

// LoadFile reads a YAML rate table. A missing or malformed file is an error
// at startup; at request time Lookup always answers.
func LoadFile(path string) (*Lookup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxes: read table: %w", err)
	}
	var table Table
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("taxes: parse table: %w", err)
	}
	return NewLookup(table), nil
}

func (l *Lookup) Rate(ctx context.Context, state string) (float64, error) {
	_ = ctx

	if rate, ok := l.table.States[strings.ToUpper(strings.TrimSpace(state))]; ok {
		return rate, nil
	}
	if l.table.DefaultRate > 0 {
		return l.table.DefaultRate, nil
	}
	return hardDefaultRate, nil
}
