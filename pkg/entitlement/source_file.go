package entitlement

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileRecord is the YAML shape of a single tier entry:
//
//	starter:
//	  daily_checks: 20
//	  countries_per_check: 1
//	  result_variations: 3
//	  features: [export]
type fileRecord struct {
	DailyChecks       *int64   `yaml:"daily_checks"`
	CountriesPerCheck *int64   `yaml:"countries_per_check"`
	ResultVariations  *int64   `yaml:"result_variations"`
	Features          []string `yaml:"features"`
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source reading a YAML catalog from path.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(ctx context.Context) (map[Tier]Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var entries map[string]fileRecord
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	records := make(map[Tier]Record, len(entries))
	for name, entry := range entries {
		tier, err := ParseTier(name)
		if err != nil {
			return nil, err
		}

		rec := Record{Limits: make(map[Limit]int64)}
		if entry.DailyChecks != nil {
			rec.Limits[LimitDailyChecks] = *entry.DailyChecks
		}
		if entry.CountriesPerCheck != nil {
			rec.Limits[LimitCountriesPerCheck] = *entry.CountriesPerCheck
		}
		if entry.ResultVariations != nil {
			rec.Limits[LimitResultVariations] = *entry.ResultVariations
		}
		for _, f := range entry.Features {
			rec.Capabilities = append(rec.Capabilities, Capability(f))
		}
		records[tier] = rec
	}
	return records, nil
}
