package service

import (
	"context"
	"errors"
	"testing"

	"fruitmap/internal/models"
	"fruitmap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, string) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	findByEmailOrFn func(context.Context, string, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return s.findByEmailOrFn(ctx, email, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		findByEmailOrFn: func(_ context.Context, _, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
	}
}

// treeRepoStub is a stub for repository.TreeRepository.
type treeRepoStub struct {
	getByIDFn     func(context.Context, string) (*models.Tree, error)
	getWithRelsFn func(context.Context, string) (*models.Tree, error)
	listActiveFn  func(context.Context, *int) ([]models.Tree, error)
	listFn        func(context.Context, repository.TreeFilter) ([]models.Tree, int64, error)
	searchFn      func(context.Context, repository.TreeSearch) ([]models.Tree, error)
	createFn      func(context.Context, *models.Tree) error
	updateFn      func(context.Context, *models.Tree) error
	deleteFn      func(context.Context, string) error
}

func (s *treeRepoStub) GetByID(ctx context.Context, id string) (*models.Tree, error) {
	return s.getByIDFn(ctx, id)
}
func (s *treeRepoStub) GetWithContributorAndSpecies(ctx context.Context, id string) (*models.Tree, error) {
	return s.getWithRelsFn(ctx, id)
}
func (s *treeRepoStub) ListActive(ctx context.Context, speciesID *int) ([]models.Tree, error) {
	return s.listActiveFn(ctx, speciesID)
}
func (s *treeRepoStub) List(ctx context.Context, filter repository.TreeFilter) ([]models.Tree, int64, error) {
	return s.listFn(ctx, filter)
}
func (s *treeRepoStub) Search(ctx context.Context, search repository.TreeSearch) ([]models.Tree, error) {
	return s.searchFn(ctx, search)
}
func (s *treeRepoStub) Create(ctx context.Context, tree *models.Tree) error {
	return s.createFn(ctx, tree)
}
func (s *treeRepoStub) Update(ctx context.Context, tree *models.Tree) error {
	return s.updateFn(ctx, tree)
}
func (s *treeRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopTreeRepo() *treeRepoStub {
	return &treeRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.Tree, error) {
			return &models.Tree{ID: id}, nil
		},
		getWithRelsFn: func(_ context.Context, id string) (*models.Tree, error) {
			return &models.Tree{ID: id}, nil
		},
		listActiveFn: func(_ context.Context, _ *int) ([]models.Tree, error) { return nil, nil },
		listFn: func(_ context.Context, _ repository.TreeFilter) ([]models.Tree, int64, error) {
			return nil, 0, nil
		},
		searchFn: func(_ context.Context, _ repository.TreeSearch) ([]models.Tree, error) { return nil, nil },
		createFn: func(_ context.Context, _ *models.Tree) error { return nil },
		updateFn: func(_ context.Context, _ *models.Tree) error { return nil },
		deleteFn: func(_ context.Context, _ string) error { return nil },
	}
}

// speciesRepoStub is a stub for repository.SpeciesRepository.
type speciesRepoStub struct {
	listFn    func(context.Context) ([]models.SpeciesSummary, error)
	getByIDFn func(context.Context, int) (*models.TreeSpecies, error)
	upsertFn  func(context.Context, *models.TreeSpecies) error
}

func (s *speciesRepoStub) List(ctx context.Context) ([]models.SpeciesSummary, error) {
	return s.listFn(ctx)
}
func (s *speciesRepoStub) GetByID(ctx context.Context, id int) (*models.TreeSpecies, error) {
	return s.getByIDFn(ctx, id)
}
func (s *speciesRepoStub) Upsert(ctx context.Context, species *models.TreeSpecies) error {
	return s.upsertFn(ctx, species)
}

func noopSpeciesRepo() *speciesRepoStub {
	return &speciesRepoStub{
		listFn: func(_ context.Context) ([]models.SpeciesSummary, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id int) (*models.TreeSpecies, error) {
			return &models.TreeSpecies{ID: id, Name: "Mango"}, nil
		},
		upsertFn: func(_ context.Context, _ *models.TreeSpecies) error { return nil },
	}
}

// reviewRepoStub is a stub for repository.ReviewRepository.
type reviewRepoStub struct {
	createUniqueFn func(context.Context, *models.Review) error
	getByIDFn      func(context.Context, string) (*models.Review, error)
	listByTreeFn   func(context.Context, string, int, int) ([]models.Review, int64, error)
	averageFn      func(context.Context, string) (float64, error)
	countFn        func(context.Context, string) (int64, error)
	distributionFn func(context.Context, string) ([]models.RatingBucket, error)
	updateFn       func(context.Context, *models.Review) error
	deleteFn       func(context.Context, string) error
}

func (s *reviewRepoStub) CreateUnique(ctx context.Context, review *models.Review) error {
	return s.createUniqueFn(ctx, review)
}
func (s *reviewRepoStub) GetByID(ctx context.Context, id string) (*models.Review, error) {
	return s.getByIDFn(ctx, id)
}
func (s *reviewRepoStub) ListByTree(ctx context.Context, treeID string, limit, offset int) ([]models.Review, int64, error) {
	return s.listByTreeFn(ctx, treeID, limit, offset)
}
func (s *reviewRepoStub) AverageRating(ctx context.Context, treeID string) (float64, error) {
	return s.averageFn(ctx, treeID)
}
func (s *reviewRepoStub) Count(ctx context.Context, treeID string) (int64, error) {
	return s.countFn(ctx, treeID)
}
func (s *reviewRepoStub) Distribution(ctx context.Context, treeID string) ([]models.RatingBucket, error) {
	return s.distributionFn(ctx, treeID)
}
func (s *reviewRepoStub) Update(ctx context.Context, review *models.Review) error {
	return s.updateFn(ctx, review)
}
func (s *reviewRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopReviewRepo() *reviewRepoStub {
	return &reviewRepoStub{
		createUniqueFn: func(_ context.Context, _ *models.Review) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Review, error) {
			return &models.Review{ID: id}, nil
		},
		listByTreeFn: func(_ context.Context, _ string, _, _ int) ([]models.Review, int64, error) {
			return nil, 0, nil
		},
		averageFn: func(_ context.Context, _ string) (float64, error) { return 0, nil },
		countFn:   func(_ context.Context, _ string) (int64, error) { return 0, nil },
		distributionFn: func(_ context.Context, _ string) ([]models.RatingBucket, error) {
			return nil, nil
		},
		updateFn: func(_ context.Context, _ *models.Review) error { return nil },
		deleteFn: func(_ context.Context, _ string) error { return nil },
	}
}

func adminIf(ids ...string) func(context.Context, string) (bool, error) {
	return func(_ context.Context, userID string) (bool, error) {
		for _, id := range ids {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func assertValidationError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertAppErrorCode(t, err, models.CodeValidation)
}

func assertForbiddenError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertAppErrorCode(t, err, models.CodeForbidden)
}
