package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"fruitmap/internal/geo"
	"fruitmap/internal/models"
	"fruitmap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	treeID    = "6f1c2a9e-3b4d-4c5e-8f70-1a2b3c4d5e6f"
	otherTree = "0d9e8f7a-6b5c-4d3e-9f21-0a1b2c3d4e5f"
)

func sampleTree(id, contributor string, lat, lng float64) *models.Tree {
	loc, _ := json.Marshal(geo.NewGeoJSONPoint(geo.Point{Lat: lat, Lng: lng}))
	return &models.Tree{
		ID:            id,
		SpeciesID:     1,
		Species:       &models.TreeSpecies{ID: 1, Name: "Mango"},
		Location:      string(loc),
		ContributorID: contributor,
		Title:         "Mango by the park",
		Accessibility: models.AccessPublic,
		Status:        models.TreeActive,
	}
}

func TestCreateTree(t *testing.T) {
	t.Run("Requires Token", func(t *testing.T) {
		env := newTestEnv(t)

		resp, _ := env.do(t, http.MethodPost, "/api/trees", map[string]any{"title": "x"}, "")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Success From LatLng String", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1, Name: "Mango"}, nil)
		env.trees.On("Create", mock.Anything, mock.AnythingOfType("*models.Tree")).
			Run(func(args mock.Arguments) {
				tree := args.Get(1).(*models.Tree)
				tree.ID = treeID
			}).
			Return(nil)
		env.trees.On("GetWithContributorAndSpecies", mock.Anything, treeID).
			Return(sampleTree(treeID, "u-1", -23.5505, -46.6333), nil)

		resp, body := env.do(t, http.MethodPost, "/api/trees", map[string]any{
			"speciesId": 1,
			"location":  "-23.5505,-46.6333",
			"title":     "  Mango by the park ",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Tree created successfully", body["message"])
		assert.Equal(t, treeID, body["tree"].(map[string]any)["id"])

		created := env.trees.Calls[0].Arguments.Get(1).(*models.Tree)
		assert.Equal(t, "u-1", created.ContributorID)
		assert.Equal(t, "Mango by the park", created.Title)
		assert.Equal(t, models.AccessPublic, created.Accessibility)
		p, err := geo.ParsePoint(created.Location)
		require.NoError(t, err)
		assert.InDelta(t, -23.5505, p.Lat, 1e-9)
		assert.InDelta(t, -46.6333, p.Lng, 1e-9)
	})

	t.Run("Success From GeoJSON Object", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1, Name: "Mango"}, nil)
		env.trees.On("Create", mock.Anything, mock.Anything).Return(nil)
		env.trees.On("GetWithContributorAndSpecies", mock.Anything, mock.Anything).
			Return(sampleTree(treeID, "u-1", 10, 20), nil)

		resp, _ := env.do(t, http.MethodPost, "/api/trees", map[string]any{
			"speciesId": 1,
			"location":  map[string]any{"type": "Point", "coordinates": []float64{20, 10}},
			"title":     "Jackfruit",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := env.trees.Calls[0].Arguments.Get(1).(*models.Tree)
		p, err := geo.ParsePoint(created.Location)
		require.NoError(t, err)
		assert.Equal(t, geo.Point{Lat: 10, Lng: 20}, p)
	})

	t.Run("Field Errors", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodPost, "/api/trees", map[string]any{
			"speciesId":     0,
			"title":         "",
			"accessibility": "everyone",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		fields := fieldMessages(t, body)
		assert.Contains(t, fields, "speciesId")
		assert.Contains(t, fields, "location")
		assert.Contains(t, fields, "title")
		assert.Contains(t, fields, "accessibility")
	})

	t.Run("Unknown Species", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 42).Return(nil, models.NewNotFoundError("Species not found"))

		resp, body := env.do(t, http.MethodPost, "/api/trees", map[string]any{
			"speciesId": 42,
			"location":  "1,1",
			"title":     "Ghost tree",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Species not found", fieldMessages(t, body)["speciesId"])
		env.trees.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Bad Coordinates", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1}, nil)

		resp, body := env.do(t, http.MethodPost, "/api/trees", map[string]any{
			"speciesId": 1,
			"location":  "95,10",
			"title":     "Too far north",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, fieldMessages(t, body), "location")
	})

	t.Run("Non Point GeoJSON", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1}, nil).Maybe()

		resp, body := env.do(t, http.MethodPost, "/api/trees", map[string]any{
			"speciesId": 1,
			"location":  map[string]any{"type": "Polygon", "coordinates": []float64{20, 10}},
			"title":     "Not a point",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, fieldMessages(t, body), "location")
		env.trees.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetTree(t *testing.T) {
	env := newTestEnv(t)
	env.trees.On("GetWithContributorAndSpecies", mock.Anything, treeID).
		Return(sampleTree(treeID, "u-1", 1, 1), nil)
	env.trees.On("GetWithContributorAndSpecies", mock.Anything, otherTree).
		Return(nil, models.NewNotFoundError("Tree not found"))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"Found", "/api/trees/" + treeID, http.StatusOK},
		{"Not Found", "/api/trees/" + otherTree, http.StatusNotFound},
		{"Invalid ID", "/api/trees/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, tt.path, nil, "")
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				tree := body["tree"].(map[string]any)
				assert.Equal(t, "Mango", tree["species"].(map[string]any)["name"])
			}
		})
	}
}

func TestUpdateTree(t *testing.T) {
	t.Run("Owner", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("GetByID", mock.Anything, treeID).Return(sampleTree(treeID, "u-1", 1, 1), nil)
		env.trees.On("Update", mock.Anything, mock.Anything).Return(nil)
		updated := sampleTree(treeID, "u-1", 1, 1)
		updated.Status = models.TreeSeasonal
		env.trees.On("GetWithContributorAndSpecies", mock.Anything, treeID).Return(updated, nil)

		resp, body := env.do(t, http.MethodPatch, "/api/trees/"+treeID, map[string]any{
			"status": "seasonal",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Tree updated successfully", body["message"])
		assert.Equal(t, models.TreeSeasonal, body["tree"].(map[string]any)["status"])
	})

	t.Run("Stranger Is Forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("GetByID", mock.Anything, treeID).Return(sampleTree(treeID, "u-1", 1, 1), nil)
		env.users.On("GetByID", mock.Anything, "u-2").Return(&models.User{ID: "u-2", Role: models.RoleUser}, nil)

		resp, body := env.do(t, http.MethodPatch, "/api/trees/"+treeID, map[string]any{
			"title": "Mine now",
		}, env.token(t, "u-2"))

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Not authorized to update this tree", body["error"])
		env.trees.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Admin", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("GetByID", mock.Anything, treeID).Return(sampleTree(treeID, "u-1", 1, 1), nil)
		env.users.On("GetByID", mock.Anything, "admin").Return(&models.User{ID: "admin", Role: models.RoleAdmin}, nil)
		env.trees.On("Update", mock.Anything, mock.Anything).Return(nil)
		env.trees.On("GetWithContributorAndSpecies", mock.Anything, treeID).Return(sampleTree(treeID, "u-1", 1, 1), nil)

		resp, _ := env.do(t, http.MethodPatch, "/api/trees/"+treeID, map[string]any{
			"title": "Verified mango",
		}, env.token(t, "admin"))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Invalid Status", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodPatch, "/api/trees/"+treeID, map[string]any{
			"status": "burnt",
		}, env.token(t, "u-1"))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, fieldMessages(t, body), "status")
	})
}

func TestDeleteTree(t *testing.T) {
	t.Run("Owner", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("GetByID", mock.Anything, treeID).Return(sampleTree(treeID, "u-1", 1, 1), nil)
		env.trees.On("Delete", mock.Anything, treeID).Return(nil)

		resp, body := env.do(t, http.MethodDelete, "/api/trees/"+treeID, nil, env.token(t, "u-1"))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Tree deleted successfully", body["message"])
		env.trees.AssertExpectations(t)
	})

	t.Run("Stranger Is Forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("GetByID", mock.Anything, treeID).Return(sampleTree(treeID, "u-1", 1, 1), nil)
		env.users.On("GetByID", mock.Anything, "u-2").Return(&models.User{ID: "u-2", Role: models.RoleModerator}, nil)

		resp, body := env.do(t, http.MethodDelete, "/api/trees/"+treeID, nil, env.token(t, "u-2"))

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Not authorized to delete this tree", body["error"])
		env.trees.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Missing", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("GetByID", mock.Anything, treeID).Return(nil, models.NewNotFoundError("Tree not found"))

		resp, _ := env.do(t, http.MethodDelete, "/api/trees/"+treeID, nil, env.token(t, "u-1"))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestListTrees(t *testing.T) {
	t.Run("Database Page", func(t *testing.T) {
		env := newTestEnv(t)
		species := 1
		env.trees.On("List", mock.Anything, repository.TreeFilter{
			SpeciesID:     &species,
			Accessibility: models.AccessPublic,
			Limit:         2,
			Offset:        0,
		}).Return([]models.Tree{*sampleTree(treeID, "u-1", 1, 1), *sampleTree(otherTree, "u-1", 2, 2)}, int64(5), nil)

		resp, body := env.do(t, http.MethodGet, "/api/trees?speciesId=1&accessibility=public&limit=2", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["trees"], 2)
		pagination := body["pagination"].(map[string]any)
		assert.EqualValues(t, 5, pagination["total"])
		assert.EqualValues(t, 2, pagination["limit"])
		assert.EqualValues(t, 0, pagination["offset"])
		assert.EqualValues(t, 3, pagination["pages"])
	})

	t.Run("Radius Sorted By Distance", func(t *testing.T) {
		env := newTestEnv(t)
		near := sampleTree(treeID, "u-1", -23.5505, -46.6333)
		farther := sampleTree(otherTree, "u-1", -23.5605, -46.6333)
		env.trees.On("ListActive", mock.Anything, (*int)(nil)).Return([]models.Tree{*farther, *near}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/trees?lat=-23.5505&lng=-46.6333&radius=5", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		trees := body["trees"].([]any)
		require.Len(t, trees, 2)
		first := trees[0].(map[string]any)
		assert.Equal(t, treeID, first["id"])
		assert.EqualValues(t, 0, first["distance"])
		assert.EqualValues(t, 2, body["pagination"].(map[string]any)["total"])
	})

	t.Run("Bounding Box", func(t *testing.T) {
		env := newTestEnv(t)
		inside := sampleTree(treeID, "u-1", 10, 10)
		outside := sampleTree(otherTree, "u-1", 30, 30)
		env.trees.On("ListActive", mock.Anything, (*int)(nil)).Return([]models.Tree{*inside, *outside}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/trees?minLat=0&maxLat=20&minLng=0&maxLng=20", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		trees := body["trees"].([]any)
		require.Len(t, trees, 1)
		assert.Equal(t, treeID, trees[0].(map[string]any)["id"])
	})

	t.Run("Empty Result Is An Array", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("List", mock.Anything, mock.Anything).Return([]models.Tree(nil), int64(0), nil)

		resp, body := env.do(t, http.MethodGet, "/api/trees", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []any{}, body["trees"])
	})

	t.Run("Invalid Limit", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodGet, "/api/trees?limit=0", nil, "")

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, fieldMessages(t, body), "limit")
	})
}

func TestSearchTrees(t *testing.T) {
	t.Run("Text Only", func(t *testing.T) {
		env := newTestEnv(t)
		env.trees.On("Search", mock.Anything, repository.TreeSearch{Query: "mango"}).
			Return([]models.Tree{*sampleTree(treeID, "u-1", 1, 1)}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/trees/search?query=mango", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("Radius Out Of Range", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodGet, "/api/trees/search?lat=1&lng=1&radius=80", nil, "")

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, fieldMessages(t, body), "radius")
	})
}

func TestGeoQueries_RejectNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		field string
	}{
		{"List NaN Latitude", "/api/trees?lat=NaN&lng=0&radius=1", "lat"},
		{"List NaN Radius", "/api/trees?lat=0&lng=0&radius=NaN", "radius"},
		{"List Infinite Radius", "/api/trees?lat=0&lng=0&radius=Inf", "radius"},
		{"List NaN Bounds", "/api/trees?minLat=NaN&maxLat=1&minLng=0&maxLng=1", "bounds"},
		{"Search NaN Latitude", "/api/trees/search?lat=NaN&lng=0&radius=1", "lat"},
		{"Search NaN Radius", "/api/trees/search?lat=0&lng=0&radius=NaN", "radius"},
		{"Search Infinite Radius", "/api/trees/search?lat=0&lng=0&radius=Inf", "radius"},
		{"Species Trees NaN Bounds", "/api/species/1/trees?minLat=0&maxLat=NaN&minLng=0&maxLng=1", "bounds"},
		{"Species Trees Infinite Bounds", "/api/species/1/trees?minLat=0&maxLat=1&minLng=-Inf&maxLng=1", "bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			resp, body := env.do(t, http.MethodGet, tt.path, nil, "")

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, fieldMessages(t, body), tt.field)
			env.trees.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
		})
	}
}
