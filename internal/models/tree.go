package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Accessibility values for a tree.
const (
	AccessPublic            = "public"
	AccessCommunity         = "community"
	AccessPrivatePermission = "private-permission"
	AccessRestricted        = "restricted"
)

// Status values for a tree.
const (
	TreeActive   = "active"
	TreeInactive = "inactive"
	TreeSeasonal = "seasonal"
	TreeRemoved  = "removed"
)

// Accessibilities lists every accepted accessibility value.
var Accessibilities = []string{AccessPublic, AccessCommunity, AccessPrivatePermission, AccessRestricted}

// TreeStatuses lists every accepted status value.
var TreeStatuses = []string{TreeActive, TreeInactive, TreeSeasonal, TreeRemoved}

// Tree is a fruit-bearing tree submitted by a contributor.
// Location holds a serialized GeoJSON Point.
type Tree struct {
	ID            string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	SpeciesID     int          `gorm:"not null;index" json:"speciesId"`
	Species       *TreeSpecies `gorm:"foreignKey:SpeciesID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"species,omitempty"`
	Location      string       `gorm:"type:text;not null" json:"location"`
	ContributorID string       `gorm:"type:varchar(36);not null;index" json:"contributorId"`
	Contributor   *UserSummary `gorm:"foreignKey:ContributorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"contributor,omitempty"`
	Title         string       `gorm:"size:200;not null" json:"title"`
	Description   *string      `gorm:"type:text" json:"description,omitempty"`
	Accessibility string       `gorm:"size:32;not null;default:public" json:"accessibility"`
	IsVerified    bool         `gorm:"not null;default:false" json:"isVerified"`
	Status        string       `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	// Distance is set by radius searches only; meters, rounded.
	Distance *int `gorm:"-" json:"distance,omitempty"`
}

// BeforeCreate assigns a UUID and the default enum values.
func (t *Tree) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Accessibility == "" {
		t.Accessibility = AccessPublic
	}
	if t.Status == "" {
		t.Status = TreeActive
	}
	return nil
}

// IsOwnedBy reports whether userID contributed the tree.
func (t *Tree) IsOwnedBy(userID string) bool {
	return t != nil && t.ContributorID == userID
}

// Live map event types.
const (
	TreeEventCreated = "tree.created"
	TreeEventUpdated = "tree.updated"
	TreeEventDeleted = "tree.deleted"
)
