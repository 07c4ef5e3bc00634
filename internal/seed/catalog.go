// Package seed loads reference data and demo content into the database.
// Demo helpers are intended for development and testing only.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed species.yaml
var speciesYAML []byte

// CatalogEntry is one species in the embedded catalog.
type CatalogEntry struct {
	Name           string            `yaml:"name"`
	ScientificName string            `yaml:"scientificName"`
	Native         bool              `yaml:"native"`
	Description    string            `yaml:"description"`
	Nutrition      map[string]string `yaml:"nutrition"`
}

// Model converts the entry into a storable species row.
func (e CatalogEntry) Model() *models.TreeSpecies {
	species := &models.TreeSpecies{
		Name:        strings.TrimSpace(e.Name),
		Description: e.Description,
		IsNative:    e.Native,
	}
	if e.ScientificName != "" {
		sci := e.ScientificName
		species.ScientificName = &sci
	}
	if len(e.Nutrition) > 0 {
		species.NutritionalInfo = make(models.JSONMap, len(e.Nutrition))
		for k, v := range e.Nutrition {
			species.NutritionalInfo[k] = v
		}
	}
	return species
}

// Catalog parses the embedded species catalog.
func Catalog() ([]CatalogEntry, error) {
	return ParseCatalog(speciesYAML)
}

// ParseCatalog decodes a YAML list of species. Names must be present and unique.
func ParseCatalog(raw []byte) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse species catalog: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			return nil, fmt.Errorf("species catalog entry %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("species catalog lists %q twice", name)
		}
		seen[name] = true
	}
	return entries, nil
}

// Species upserts every catalog entry by name. Running it again refreshes
// descriptions without changing ids.
func Species(ctx context.Context, repo repository.SpeciesRepository) (int, error) {
	entries, err := Catalog()
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		if err := repo.Upsert(ctx, e.Model()); err != nil {
			return 0, fmt.Errorf("upsert species %s: %w", e.Name, err)
		}
	}

	middleware.Logger.InfoContext(ctx, "species catalog seeded", slog.Int("count", len(entries)))
	return len(entries), nil
}
