package repository

import (
	"context"
	"database/sql"
	"errors"

	"fruitmap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Domain messages shared with the review service.
const (
	ErrAlreadyReviewed = "User has already reviewed this tree"
	ErrReviewNotFound  = "Review not found"
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	CreateUnique(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByTree(ctx context.Context, treeID string, limit, offset int) ([]models.Review, int64, error)
	AverageRating(ctx context.Context, treeID string) (float64, error)
	Count(ctx context.Context, treeID string) (int64, error)
	Distribution(ctx context.Context, treeID string) ([]models.RatingBucket, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository returns a new ReviewRepository implementation.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// CreateUnique inserts review unless the user already reviewed the tree.
// The check and the insert share a transaction; the unique index
// idx_reviews_user_tree settles concurrent inserts and is mapped to the same conflict.
func (r *reviewRepository) CreateUnique(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("user_id = ? AND tree_id = ?", review.UserID, review.TreeID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.NewConflictError(ErrAlreadyReviewed)
		}
		return tx.Omit(clause.Associations).Create(review).Error
	})
	switch {
	case err == nil:
		return nil
	case models.IsCode(err, models.CodeConflict):
		return err
	case isUniqueConstraintError(err):
		return models.NewConflictError(ErrAlreadyReviewed)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return models.NewNotFoundError("Tree not found")
	default:
		return models.NewInternalError(err)
	}
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError(ErrReviewNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	return &review, nil
}

// ListByTree returns one page of a tree's reviews, most recent first, with the total count.
func (r *reviewRepository) ListByTree(ctx context.Context, treeID string, limit, offset int) ([]models.Review, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("tree_id = ?", treeID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	reviews := []models.Review{}
	if err := r.db.WithContext(ctx).
		Preload("User", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "username", "full_name")
		}).
		Where("tree_id = ?", treeID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return reviews, total, nil
}

// AverageRating returns the raw AVG(rating); 0 when the tree has no reviews.
func (r *reviewRepository) AverageRating(ctx context.Context, treeID string) (float64, error) {
	var avg sql.NullFloat64
	row := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating)").
		Where("tree_id = ?", treeID).
		Row()
	if err := row.Scan(&avg); err != nil {
		return 0, models.NewInternalError(err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (r *reviewRepository) Count(ctx context.Context, treeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("tree_id = ?", treeID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Distribution counts reviews per rating, returning all five buckets.
func (r *reviewRepository) Distribution(ctx context.Context, treeID string) ([]models.RatingBucket, error) {
	var rows []models.RatingBucket
	if err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("tree_id = ?", treeID).
		Group("rating").
		Order("rating").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return fillDistribution(rows), nil
}

func fillDistribution(rows []models.RatingBucket) []models.RatingBucket {
	buckets := make([]models.RatingBucket, 5)
	for i := range buckets {
		buckets[i].Rating = i + 1
	}
	for _, row := range rows {
		if row.Rating >= 1 && row.Rating <= 5 {
			buckets[row.Rating-1].Count = row.Count
		}
	}
	return buckets
}

// Update persists rating and comment.
func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Model(review).
		Select("rating", "comment", "updated_at").
		Updates(review).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(ErrReviewNotFound)
	}
	return nil
}
