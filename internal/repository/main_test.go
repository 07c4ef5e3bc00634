package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fruitmap/internal/config"
	"fruitmap/internal/database"
	"fruitmap/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// newTestDB returns a migrated in-memory SQLite database private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DatabaseURL: "sqlite::memory:"}
	db, err := database.Open(database.Dialector(cfg))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.RunMigrations(context.Background(), db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	n := dbSeq.Add(1)
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", n),
		Username: fmt.Sprintf("user_%d", n),
		Password: "hash",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func seedSpecies(t *testing.T, db *gorm.DB, name string) *models.TreeSpecies {
	t.Helper()
	species := &models.TreeSpecies{Name: name}
	require.NoError(t, db.Create(species).Error)
	return species
}

func seedTree(t *testing.T, db *gorm.DB, contributor *models.User, species *models.TreeSpecies, title, location string) *models.Tree {
	t.Helper()
	tree := &models.Tree{
		SpeciesID:     species.ID,
		ContributorID: contributor.ID,
		Title:         title,
		Location:      location,
	}
	require.NoError(t, NewTreeRepository(db).Create(context.Background(), tree))
	// Keep created_at strictly increasing so newest-first ordering is deterministic.
	time.Sleep(2 * time.Millisecond)
	return tree
}
