package service

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"fruitmap/internal/geo"
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/repository"
)

// DefaultTreePageSize is used when a listing does not ask for a limit.
const DefaultTreePageSize = 50

// TreeEventPublisher receives tree lifecycle events for the live map feed.
type TreeEventPublisher interface {
	PublishTreeEvent(ctx context.Context, eventType string, tree *models.Tree) error
}

type TreeService struct {
	trees   repository.TreeRepository
	species repository.SpeciesRepository
	geo     *GeoService
	isAdmin func(ctx context.Context, userID string) (bool, error)
	events  TreeEventPublisher
}

type CreateTreeInput struct {
	ContributorID string
	SpeciesID     int
	Location      string
	Title         string
	Description   *string
	Accessibility string
}

// UpdateTreeInput carries a partial update; nil fields are left unchanged.
type UpdateTreeInput struct {
	UserID        string
	TreeID        string
	SpeciesID     *int
	Location      *string
	Title         *string
	Description   *string
	Accessibility *string
	Status        *string
}

type DeleteTreeInput struct {
	UserID string
	TreeID string
}

// NearQuery selects trees within RadiusKm of Center.
type NearQuery struct {
	Center   geo.Point
	RadiusKm float64
}

// ListTreesInput combines column filters with an optional geospatial filter.
// BBox wins over Near when both are set.
type ListTreesInput struct {
	SpeciesID     *int
	Accessibility string
	Status        string
	Limit         int
	Offset        int
	BBox          *geo.BoundingBox
	Near          *NearQuery
}

type SearchTreesInput struct {
	Query     string
	SpeciesID *int
	Near      *NearQuery
}

// TreePage is one page of a tree listing.
type TreePage struct {
	Trees  []models.Tree
	Total  int64
	Limit  int
	Offset int
	Pages  int
}

func NewTreeService(
	trees repository.TreeRepository,
	species repository.SpeciesRepository,
	geoService *GeoService,
	isAdmin func(ctx context.Context, userID string) (bool, error),
	events TreeEventPublisher,
) *TreeService {
	return &TreeService{
		trees:   trees,
		species: species,
		geo:     geoService,
		isAdmin: isAdmin,
		events:  events,
	}
}

func (s *TreeService) CreateTree(ctx context.Context, in CreateTreeInput) (*models.Tree, error) {
	if err := s.requireSpecies(ctx, in.SpeciesID); err != nil {
		return nil, err
	}

	location, err := normalizeLocation(in.Location)
	if err != nil {
		return nil, err
	}

	tree := &models.Tree{
		SpeciesID:     in.SpeciesID,
		Location:      location,
		ContributorID: in.ContributorID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Accessibility: in.Accessibility,
	}
	if err := s.trees.Create(ctx, tree); err != nil {
		return nil, err
	}

	created, err := s.trees.GetWithContributorAndSpecies(ctx, tree.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.TreeEventCreated, created)
	return created, nil
}

func (s *TreeService) GetTree(ctx context.Context, id string) (*models.Tree, error) {
	return s.trees.GetWithContributorAndSpecies(ctx, id)
}

func (s *TreeService) UpdateTree(ctx context.Context, in UpdateTreeInput) (*models.Tree, error) {
	tree, err := s.trees.GetByID(ctx, in.TreeID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, tree, in.UserID, "Not authorized to update this tree"); err != nil {
		return nil, err
	}

	if in.SpeciesID != nil && *in.SpeciesID != tree.SpeciesID {
		if err := s.requireSpecies(ctx, *in.SpeciesID); err != nil {
			return nil, err
		}
		tree.SpeciesID = *in.SpeciesID
		tree.Species = nil
	}
	if in.Location != nil {
		location, err := normalizeLocation(*in.Location)
		if err != nil {
			return nil, err
		}
		tree.Location = location
	}
	if in.Title != nil {
		tree.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		tree.Description = in.Description
	}
	if in.Accessibility != nil {
		tree.Accessibility = *in.Accessibility
	}
	if in.Status != nil {
		tree.Status = *in.Status
	}

	if err := s.trees.Update(ctx, tree); err != nil {
		return nil, err
	}

	updated, err := s.trees.GetWithContributorAndSpecies(ctx, tree.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.TreeEventUpdated, updated)
	return updated, nil
}

func (s *TreeService) DeleteTree(ctx context.Context, in DeleteTreeInput) error {
	tree, err := s.trees.GetByID(ctx, in.TreeID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, tree, in.UserID, "Not authorized to delete this tree"); err != nil {
		return err
	}
	if err := s.trees.Delete(ctx, tree.ID); err != nil {
		return err
	}
	s.publish(ctx, models.TreeEventDeleted, tree)
	return nil
}

// ListTrees pages through trees. Geospatial queries are filtered in memory and
// paginated after filtering.
func (s *TreeService) ListTrees(ctx context.Context, in ListTreesInput) (*TreePage, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultTreePageSize
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	if in.BBox == nil && in.Near == nil {
		trees, total, err := s.trees.List(ctx, repository.TreeFilter{
			SpeciesID:     in.SpeciesID,
			Accessibility: in.Accessibility,
			Status:        in.Status,
			Limit:         limit,
			Offset:        offset,
		})
		if err != nil {
			return nil, err
		}
		return newTreePage(trees, total, limit, offset), nil
	}

	var (
		trees []models.Tree
		err   error
	)
	if in.BBox != nil {
		trees, err = s.geo.FindTreesInBounds(ctx, *in.BBox)
	} else {
		trees, err = s.geo.FindTreesNearPoint(ctx, in.Near.Center, in.Near.RadiusKm)
	}
	if err != nil {
		return nil, err
	}

	trees = filterTrees(trees, func(t *models.Tree) bool {
		if in.SpeciesID != nil && t.SpeciesID != *in.SpeciesID {
			return false
		}
		return in.Accessibility == "" || t.Accessibility == in.Accessibility
	})

	total := int64(len(trees))
	return newTreePage(paginate(trees, limit, offset), total, limit, offset), nil
}

// SearchTrees matches active trees by free text. With a NearQuery the text is
// matched in memory against title, species name and description of nearby
// trees; otherwise the title is matched in the database.
func (s *TreeService) SearchTrees(ctx context.Context, in SearchTreesInput) ([]models.Tree, error) {
	query := strings.TrimSpace(in.Query)

	if in.Near == nil {
		return s.trees.Search(ctx, repository.TreeSearch{Query: query, SpeciesID: in.SpeciesID})
	}

	trees, err := s.geo.FindTreesNearPoint(ctx, in.Near.Center, in.Near.RadiusKm)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	return filterTrees(trees, func(t *models.Tree) bool {
		if in.SpeciesID != nil && t.SpeciesID != *in.SpeciesID {
			return false
		}
		return needle == "" || treeMatches(t, needle)
	}), nil
}

// TreesBySpecies lists active trees of a known species, optionally inside bbox.
func (s *TreeService) TreesBySpecies(ctx context.Context, speciesID int, bbox *geo.BoundingBox) ([]models.Tree, error) {
	if _, err := s.species.GetByID(ctx, speciesID); err != nil {
		return nil, err
	}
	return s.geo.GetTreesBySpecies(ctx, speciesID, bbox)
}

func (s *TreeService) authorize(ctx context.Context, tree *models.Tree, userID, message string) error {
	if tree.IsOwnedBy(userID) {
		return nil
	}
	if s.isAdmin != nil {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return models.NewForbiddenError(message)
}

func (s *TreeService) requireSpecies(ctx context.Context, id int) error {
	if _, err := s.species.GetByID(ctx, id); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewFieldValidationError([]models.FieldError{
				{Field: "speciesId", Message: "Species not found"},
			})
		}
		return err
	}
	return nil
}

func (s *TreeService) publish(ctx context.Context, eventType string, tree *models.Tree) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTreeEvent(ctx, eventType, tree); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish tree event",
			slog.String("type", eventType),
			slog.String("tree_id", tree.ID),
			slog.String("error", err.Error()),
		)
	}
}

func normalizeLocation(raw string) (string, error) {
	location, err := geo.NormalizeLocation(raw)
	if err != nil {
		return "", models.NewFieldValidationError([]models.FieldError{
			{Field: "location", Message: err.Error()},
		})
	}
	return location, nil
}

func treeMatches(t *models.Tree, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	if t.Species != nil && strings.Contains(strings.ToLower(t.Species.Name), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}

func filterTrees(trees []models.Tree, keep func(*models.Tree) bool) []models.Tree {
	out := trees[:0]
	for i := range trees {
		if keep(&trees[i]) {
			out = append(out, trees[i])
		}
	}
	return out
}

func paginate(trees []models.Tree, limit, offset int) []models.Tree {
	if offset >= len(trees) {
		return []models.Tree{}
	}
	end := offset + limit
	if end > len(trees) {
		end = len(trees)
	}
	return trees[offset:end]
}

func newTreePage(trees []models.Tree, total int64, limit, offset int) *TreePage {
	if trees == nil {
		trees = []models.Tree{}
	}
	return &TreePage{
		Trees:  trees,
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Pages:  int(math.Ceil(float64(total) / float64(limit))),
	}
}
