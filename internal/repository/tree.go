package repository

import (
	"context"
	"strings"

	"fruitmap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TreeFilter narrows a paginated tree listing.
type TreeFilter struct {
	SpeciesID     *int
	Accessibility string
	Status        string
	Limit         int
	Offset        int
}

// TreeSearch narrows a text search over active trees.
type TreeSearch struct {
	Query     string
	SpeciesID *int
}

// TreeRepository defines persistence operations for trees.
type TreeRepository interface {
	GetByID(ctx context.Context, id string) (*models.Tree, error)
	GetWithContributorAndSpecies(ctx context.Context, id string) (*models.Tree, error)
	ListActive(ctx context.Context, speciesID *int) ([]models.Tree, error)
	List(ctx context.Context, filter TreeFilter) ([]models.Tree, int64, error)
	Search(ctx context.Context, search TreeSearch) ([]models.Tree, error)
	Create(ctx context.Context, tree *models.Tree) error
	Update(ctx context.Context, tree *models.Tree) error
	Delete(ctx context.Context, id string) error
}

type treeRepository struct {
	db *gorm.DB
}

// NewTreeRepository returns a new TreeRepository implementation.
func NewTreeRepository(db *gorm.DB) TreeRepository {
	return &treeRepository{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Contributor", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "username", "full_name")
		}).
		Preload("Species")
}

// GetByID loads the bare row. A missing tree is a NOT_FOUND AppError.
func (r *treeRepository) GetByID(ctx context.Context, id string) (*models.Tree, error) {
	var tree models.Tree
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tree).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Tree not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &tree, nil
}

func (r *treeRepository) GetWithContributorAndSpecies(ctx context.Context, id string) (*models.Tree, error) {
	var tree models.Tree
	if err := withRelations(r.db.WithContext(ctx)).Where("id = ?", id).First(&tree).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Tree not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &tree, nil
}

// ListActive returns every active tree, optionally of one species, with relations loaded.
// Geospatial filtering runs over this set.
func (r *treeRepository) ListActive(ctx context.Context, speciesID *int) ([]models.Tree, error) {
	trees := []models.Tree{}
	q := withRelations(r.db.WithContext(ctx)).Where("status = ?", models.TreeActive)
	if speciesID != nil {
		q = q.Where("species_id = ?", *speciesID)
	}
	if err := q.Order("created_at DESC").Find(&trees).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return trees, nil
}

// List returns one page of trees, newest first, and the total matching count.
func (r *treeRepository) List(ctx context.Context, filter TreeFilter) ([]models.Tree, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Tree{})
	if filter.SpeciesID != nil {
		q = q.Where("species_id = ?", *filter.SpeciesID)
	}
	if filter.Accessibility != "" {
		q = q.Where("accessibility = ?", filter.Accessibility)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	trees := []models.Tree{}
	if err := withRelations(q).
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&trees).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return trees, total, nil
}

// Search matches active trees whose title contains the query, case-insensitively.
func (r *treeRepository) Search(ctx context.Context, search TreeSearch) ([]models.Tree, error) {
	q := withRelations(r.db.WithContext(ctx)).Where("status = ?", models.TreeActive)
	if term := strings.TrimSpace(search.Query); term != "" {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(term))+"%")
	}
	if search.SpeciesID != nil {
		q = q.Where("species_id = ?", *search.SpeciesID)
	}

	trees := []models.Tree{}
	if err := q.Order("created_at DESC").Find(&trees).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return trees, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *treeRepository) Create(ctx context.Context, tree *models.Tree) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(tree).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes every column of tree, including zero values.
func (r *treeRepository) Update(ctx context.Context, tree *models.Tree) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(tree).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *treeRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Tree{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Tree not found")
	}
	return nil
}
