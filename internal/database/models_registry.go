package database

import "fruitmap/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.TreeSpecies{},
		&models.Tree{},
		&models.Review{},
	}
}
