package service

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"fruitmap/internal/geo"
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/observability"
	"fruitmap/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// GeoService filters active trees by location in memory. Every query scans the
// full set of active trees; there is no spatial index.
type GeoService struct {
	trees repository.TreeRepository
}

func NewGeoService(trees repository.TreeRepository) *GeoService {
	return &GeoService{trees: trees}
}

// FindTreesInBounds returns active trees inside bbox, edges included.
func (s *GeoService) FindTreesInBounds(ctx context.Context, bbox geo.BoundingBox) ([]models.Tree, error) {
	span, ctx := observability.NewSpan(ctx, "geo.FindTreesInBounds")
	defer span.End()

	trees, err := s.trees.ListActive(ctx, nil)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.GeoScannedTrees.WithLabelValues("bounds").Observe(float64(len(trees)))

	return s.withinBounds(ctx, trees, bbox), nil
}

// FindTreesNearPoint returns active trees within radiusKm of center, nearest
// first, each annotated with its rounded distance in meters.
func (s *GeoService) FindTreesNearPoint(ctx context.Context, center geo.Point, radiusKm float64) ([]models.Tree, error) {
	span, ctx := observability.NewSpan(ctx, "geo.FindTreesNearPoint")
	defer span.End()
	span.AddAttributes(
		attribute.Float64("geo.lat", center.Lat),
		attribute.Float64("geo.lng", center.Lng),
		attribute.Float64("geo.radius_km", radiusKm),
	)

	trees, err := s.trees.ListActive(ctx, nil)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.GeoScannedTrees.WithLabelValues("radius").Observe(float64(len(trees)))

	return s.nearPoint(ctx, trees, center, radiusKm), nil
}

// GetTreesBySpecies returns active trees of one species, optionally inside bbox.
func (s *GeoService) GetTreesBySpecies(ctx context.Context, speciesID int, bbox *geo.BoundingBox) ([]models.Tree, error) {
	span, ctx := observability.NewSpan(ctx, "geo.GetTreesBySpecies")
	defer span.End()
	span.AddAttributes(attribute.Int("species.id", speciesID))

	trees, err := s.trees.ListActive(ctx, &speciesID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if bbox == nil {
		return trees, nil
	}
	observability.GeoScannedTrees.WithLabelValues("species").Observe(float64(len(trees)))

	return s.withinBounds(ctx, trees, *bbox), nil
}

func (s *GeoService) withinBounds(ctx context.Context, trees []models.Tree, bbox geo.BoundingBox) []models.Tree {
	out := make([]models.Tree, 0, len(trees))
	for _, tree := range trees {
		p, ok := s.locate(ctx, &tree)
		if !ok {
			continue
		}
		if bbox.Contains(p) {
			out = append(out, tree)
		}
	}
	return out
}

func (s *GeoService) nearPoint(ctx context.Context, trees []models.Tree, center geo.Point, radiusKm float64) []models.Tree {
	limit := radiusKm * 1000
	out := make([]models.Tree, 0, len(trees))
	for _, tree := range trees {
		p, ok := s.locate(ctx, &tree)
		if !ok {
			continue
		}
		d := geo.Haversine(center, p)
		if !(d <= limit) {
			continue
		}
		rounded := int(math.Round(d))
		tree.Distance = &rounded
		out = append(out, tree)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Distance < *out[j].Distance
	})
	return out
}

// locate parses a stored location. Unparseable rows are logged and skipped.
func (s *GeoService) locate(ctx context.Context, tree *models.Tree) (geo.Point, bool) {
	p, err := geo.ParsePoint(tree.Location)
	if err != nil {
		observability.GeoUnparseableLocations.Inc()
		middleware.Logger.WarnContext(ctx, "skipping tree with unparseable location",
			slog.String("tree_id", tree.ID),
			slog.String("error", err.Error()),
		)
		return geo.Point{}, false
	}
	return p, true
}
