package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a 1-5 star rating left on a tree. One per (user, tree).
type Review struct {
	ID        string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_reviews_user_tree" json:"userId"`
	User      *UserSummary `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	TreeID    string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_reviews_user_tree;index" json:"treeId"`
	Tree      *Tree        `gorm:"foreignKey:TreeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Rating    int          `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   *string      `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RatingBucket is the number of reviews with a given star value.
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// ReviewStats aggregates the reviews of a single tree. RatingDistribution
// always holds five buckets, ratings 1 to 5 in order.
type ReviewStats struct {
	AverageRating      float64        `json:"averageRating"`
	ReviewCount        int64          `json:"reviewCount"`
	RatingDistribution []RatingBucket `json:"ratingDistribution"`
}
