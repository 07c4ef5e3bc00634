package service

import (
	"context"

	"fruitmap/internal/models"
	"fruitmap/internal/repository"
)

// SpeciesService exposes the read-only species catalog.
type SpeciesService struct {
	species repository.SpeciesRepository
}

func NewSpeciesService(species repository.SpeciesRepository) *SpeciesService {
	return &SpeciesService{species: species}
}

// ListSpecies returns id, name and scientific name of every species, by name.
func (s *SpeciesService) ListSpecies(ctx context.Context) ([]models.SpeciesSummary, error) {
	list, err := s.species.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.SpeciesSummary{}
	}
	return list, nil
}

func (s *SpeciesService) GetSpecies(ctx context.Context, id int) (*models.TreeSpecies, error) {
	return s.species.GetByID(ctx, id)
}
