package models

import "time"

// TreeSpecies is a catalog entry trees refer to.
type TreeSpecies struct {
	ID              int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	ScientificName  *string   `gorm:"uniqueIndex;size:150" json:"scientificName,omitempty"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	IsNative        bool      `gorm:"not null;default:false" json:"isNative"`
	NutritionalInfo JSONMap   `gorm:"type:text" json:"nutritionalInfo,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName pins the table name used by the migrations.
func (TreeSpecies) TableName() string {
	return "tree_species"
}

// SpeciesSummary is the compact form returned by the species list.
type SpeciesSummary struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	ScientificName *string `json:"scientificName,omitempty"`
}
