package repository

import (
	"context"

	"fruitmap/internal/cache"
	"fruitmap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SpeciesRepository defines persistence operations for the species catalog.
type SpeciesRepository interface {
	List(ctx context.Context) ([]models.SpeciesSummary, error)
	GetByID(ctx context.Context, id int) (*models.TreeSpecies, error)
	Upsert(ctx context.Context, species *models.TreeSpecies) error
}

type speciesRepository struct {
	db *gorm.DB
}

// NewSpeciesRepository returns a new SpeciesRepository implementation.
func NewSpeciesRepository(db *gorm.DB) SpeciesRepository {
	return &speciesRepository{db: db}
}

// List returns every species sorted by name.
func (r *speciesRepository) List(ctx context.Context) ([]models.SpeciesSummary, error) {
	species := []models.SpeciesSummary{}
	err := cache.Aside(ctx, cache.SpeciesListKey, &species, cache.SpeciesTTL, func() error {
		if err := r.db.WithContext(ctx).
			Model(&models.TreeSpecies{}).
			Select("id", "name", "scientific_name").
			Order("name ASC").
			Find(&species).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return species, nil
}

func (r *speciesRepository) GetByID(ctx context.Context, id int) (*models.TreeSpecies, error) {
	var species models.TreeSpecies
	err := cache.Aside(ctx, cache.SpeciesKey(id), &species, cache.SpeciesTTL, func() error {
		if err := r.db.WithContext(ctx).First(&species, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Species not found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &species, nil
}

// Upsert inserts the species or refreshes the row with the same name.
func (r *speciesRepository) Upsert(ctx context.Context, species *models.TreeSpecies) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"scientific_name", "description", "is_native", "nutritional_info", "updated_at"}),
	}).Create(species).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateSpecies(ctx, species.ID)
	return nil
}
