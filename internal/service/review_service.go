package service

import (
	"context"
	"math"

	"fruitmap/internal/cache"
	"fruitmap/internal/models"
	"fruitmap/internal/repository"
)

// DefaultReviewPageSize is used when a review listing does not ask for a limit.
const DefaultReviewPageSize = 10

// ErrRatingRange is returned for a rating outside 1..5.
const ErrRatingRange = "Rating must be between 1 and 5"

type ReviewService struct {
	reviews repository.ReviewRepository
	trees   repository.TreeRepository
	isAdmin func(ctx context.Context, userID string) (bool, error)
}

type CreateReviewInput struct {
	UserID  string
	TreeID  string
	Rating  int
	Comment *string
}

// UpdateReviewInput carries a partial update; nil fields are left unchanged.
type UpdateReviewInput struct {
	UserID   string
	ReviewID string
	Rating   *int
	Comment  *string
}

type DeleteReviewInput struct {
	UserID   string
	ReviewID string
}

// ReviewPage is one page of a tree's reviews, newest first.
type ReviewPage struct {
	Reviews       []models.Review
	Total         int64
	Limit         int
	Offset        int
	Page          int
	Pages         int
	AverageRating float64
}

func NewReviewService(
	reviews repository.ReviewRepository,
	trees repository.TreeRepository,
	isAdmin func(ctx context.Context, userID string) (bool, error),
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		trees:   trees,
		isAdmin: isAdmin,
	}
}

// CreateReview stores a review. A second review of the same tree by the same
// user is a conflict.
func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if !validRating(in.Rating) {
		return nil, models.NewValidationError(ErrRatingRange)
	}
	if _, err := s.trees.GetByID(ctx, in.TreeID); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:  in.UserID,
		TreeID:  in.TreeID,
		Rating:  in.Rating,
		Comment: in.Comment,
	}
	if err := s.reviews.CreateUnique(ctx, review); err != nil {
		return nil, err
	}
	cache.InvalidateReviewStats(ctx, in.TreeID)

	return s.reviews.GetByID(ctx, review.ID)
}

// ListForTree pages through a tree's reviews.
func (s *ReviewService) ListForTree(ctx context.Context, treeID string, limit, offset int) (*ReviewPage, error) {
	if limit <= 0 {
		limit = DefaultReviewPageSize
	}
	if offset < 0 {
		offset = 0
	}

	reviews, total, err := s.reviews.ListByTree(ctx, treeID, limit, offset)
	if err != nil {
		return nil, err
	}
	avg, err := s.AverageRating(ctx, treeID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	return &ReviewPage{
		Reviews:       reviews,
		Total:         total,
		Limit:         limit,
		Offset:        offset,
		Page:          offset/limit + 1,
		Pages:         int(math.Ceil(float64(total) / float64(limit))),
		AverageRating: avg,
	}, nil
}

// AverageRating is the mean rating rounded to one decimal, 0 without reviews.
func (s *ReviewService) AverageRating(ctx context.Context, treeID string) (float64, error) {
	avg, err := s.reviews.AverageRating(ctx, treeID)
	if err != nil {
		return 0, err
	}
	return roundRating(avg), nil
}

func (s *ReviewService) ReviewCount(ctx context.Context, treeID string) (int64, error) {
	return s.reviews.Count(ctx, treeID)
}

// RatingDistribution always holds five buckets, ratings 1 through 5.
func (s *ReviewService) RatingDistribution(ctx context.Context, treeID string) ([]models.RatingBucket, error) {
	return s.reviews.Distribution(ctx, treeID)
}

// Stats aggregates a tree's reviews. Results are cached until the next
// review write for the tree.
func (s *ReviewService) Stats(ctx context.Context, treeID string) (*models.ReviewStats, error) {
	if _, err := s.trees.GetByID(ctx, treeID); err != nil {
		return nil, err
	}

	var stats models.ReviewStats
	err := cache.Aside(ctx, cache.ReviewStatsKey(ctx, treeID), &stats, cache.ReviewStatsTTL, func() error {
		avg, err := s.AverageRating(ctx, treeID)
		if err != nil {
			return err
		}
		count, err := s.reviews.Count(ctx, treeID)
		if err != nil {
			return err
		}
		dist, err := s.reviews.Distribution(ctx, treeID)
		if err != nil {
			return err
		}
		stats = models.ReviewStats{
			AverageRating:      avg,
			ReviewCount:        count,
			RatingDistribution: dist,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateReview lets only the author change a review.
func (s *ReviewService) UpdateReview(ctx context.Context, in UpdateReviewInput) (*models.Review, error) {
	if in.Rating == nil && in.Comment == nil {
		return nil, models.NewValidationError("At least one field (rating or comment) must be provided")
	}
	if in.Rating != nil && !validRating(*in.Rating) {
		return nil, models.NewValidationError(ErrRatingRange)
	}

	review, err := s.reviews.GetByID(ctx, in.ReviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != in.UserID {
		return nil, models.NewForbiddenError("Not authorized to update this review")
	}

	if in.Rating != nil {
		review.Rating = *in.Rating
	}
	if in.Comment != nil {
		review.Comment = in.Comment
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	cache.InvalidateReviewStats(ctx, review.TreeID)

	return s.reviews.GetByID(ctx, review.ID)
}

// DeleteReview is allowed for the author and for admins.
func (s *ReviewService) DeleteReview(ctx context.Context, in DeleteReviewInput) error {
	review, err := s.reviews.GetByID(ctx, in.ReviewID)
	if err != nil {
		return err
	}

	if review.UserID != in.UserID {
		admin := false
		if s.isAdmin != nil {
			if admin, err = s.isAdmin(ctx, in.UserID); err != nil {
				return err
			}
		}
		if !admin {
			return models.NewForbiddenError("Not authorized to delete this review")
		}
	}

	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return err
	}
	cache.InvalidateReviewStats(ctx, review.TreeID)
	return nil
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

func roundRating(avg float64) float64 {
	if math.IsNaN(avg) {
		return 0
	}
	return math.Round(avg*10) / 10
}
