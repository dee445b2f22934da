package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

// seedProduct is the on-disk shape of a catalog seed entry. Cost is kept
// as the raw scalar so "12,50", "12.50" and 12.5 are all accepted.
type seedProduct struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	Cost        string `yaml:"cost"`
}

// LoadSeed reads products from a YAML (or JSON) list. Entries without a
// code are rejected; entries with an unusable cost keep a nil cost.
func LoadSeed(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]domain.Product, error) {
	var entries []seedProduct
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	products := make([]domain.Product, 0, len(entries))
	for i, e := range entries {
		code := NormalizeCode(e.Code)
		if code == "" {
			return nil, fmt.Errorf("seed entry %d: missing code", i+1)
		}
		products = append(products, domain.Product{
			Code:        code,
			Description: e.Description,
			Cost:        pricing.ParseCost(e.Cost),
		})
	}
	return products, nil
}
