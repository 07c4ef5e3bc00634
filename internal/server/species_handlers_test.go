package server

import (
	"net/http"
	"testing"

	"fruitmap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func speciesOne(id *int) bool {
	return id != nil && *id == 1
}

func TestListSpecies(t *testing.T) {
	env := newTestEnv(t)
	sci := "Malus domestica"
	env.species.On("List", mock.Anything).Return([]models.SpeciesSummary{
		{ID: 1, Name: "Apple", ScientificName: &sci},
		{ID: 2, Name: "Fig"},
	}, nil)

	resp, body := env.do(t, http.MethodGet, "/api/species", nil, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := body["species"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "Apple", first["name"])
	assert.Equal(t, sci, first["scientificName"])
	assert.NotContains(t, list[1].(map[string]any), "scientificName")
}

func TestListSpecies_Empty(t *testing.T) {
	env := newTestEnv(t)
	env.species.On("List", mock.Anything).Return(nil, nil)

	resp, body := env.do(t, http.MethodGet, "/api/species", nil, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["species"])
}

func TestGetSpecies(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockSpeciesRepository)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "Found",
			path: "/api/species/1",
			setupMock: func(m *MockSpeciesRepository) {
				m.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{
					ID:              1,
					Name:            "Apple",
					NutritionalInfo: models.JSONMap{"vitaminC": "4.6mg"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Not Found",
			path: "/api/species/42",
			setupMock: func(m *MockSpeciesRepository) {
				m.On("GetByID", mock.Anything, 42).Return(nil, models.NewNotFoundError("Species not found"))
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Species not found",
		},
		{
			name:           "Non Numeric ID",
			path:           "/api/species/apple",
			setupMock:      func(*MockSpeciesRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid ID",
		},
		{
			name:           "Zero ID",
			path:           "/api/species/0",
			setupMock:      func(*MockSpeciesRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setupMock(env.species)

			resp, body := env.do(t, http.MethodGet, tt.path, nil, "")

			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
				return
			}
			species := body["species"].(map[string]any)
			assert.Equal(t, "Apple", species["name"])
			assert.Equal(t, "4.6mg", species["nutritionalInfo"].(map[string]any)["vitaminC"])
		})
	}
}

func TestGetSpeciesTrees(t *testing.T) {
	t.Run("All Trees Of Species", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1, Name: "Apple"}, nil)
		env.trees.On("ListActive", mock.Anything, mock.MatchedBy(speciesOne)).Return([]models.Tree{
			*sampleTree(treeID, "u-1", 1, 1),
			*sampleTree(otherTree, "u-1", 50, 50),
		}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/species/1/trees", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 2, body["total"])
		assert.Len(t, body["trees"], 2)
	})

	t.Run("Inside Bounding Box", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1, Name: "Apple"}, nil)
		env.trees.On("ListActive", mock.Anything, mock.MatchedBy(speciesOne)).Return([]models.Tree{
			*sampleTree(treeID, "u-1", 1, 1),
			*sampleTree(otherTree, "u-1", 50, 50),
		}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/species/1/trees?minLat=0&maxLat=2&minLng=0&maxLng=2", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, body["total"])
		trees := body["trees"].([]any)
		require.Len(t, trees, 1)
		assert.Equal(t, treeID, trees[0].(map[string]any)["id"])
	})

	t.Run("Unknown Species", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 9).Return(nil, models.NewNotFoundError("Species not found"))

		resp, _ := env.do(t, http.MethodGet, "/api/species/9/trees", nil, "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		env.trees.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
	})

	t.Run("No Trees", func(t *testing.T) {
		env := newTestEnv(t)
		env.species.On("GetByID", mock.Anything, 1).Return(&models.TreeSpecies{ID: 1, Name: "Apple"}, nil)
		env.trees.On("ListActive", mock.Anything, mock.MatchedBy(speciesOne)).Return([]models.Tree{}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/species/1/trees", nil, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []any{}, body["trees"])
		assert.EqualValues(t, 0, body["total"])
	})
}
