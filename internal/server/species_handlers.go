package server

import (
	"fruitmap/internal/models"
	"fruitmap/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ListSpecies handles GET /api/species
// @Summary List species
// @Tags species
// @Produce json
// @Success 200 {object} object{species=[]models.SpeciesSummary}
// @Router /species [get]
func (s *Server) ListSpecies(c *fiber.Ctx) error {
	species, err := s.speciesService.ListSpecies(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"species": species})
}

// GetSpecies handles GET /api/species/:id
// @Summary Get a species
// @Tags species
// @Produce json
// @Param id path int true "Species ID"
// @Success 200 {object} object{species=models.TreeSpecies}
// @Failure 404 {object} models.ErrorResponse
// @Router /species/{id} [get]
func (s *Server) GetSpecies(c *fiber.Ctx) error {
	id, err := parseIntID(c, "id")
	if err != nil {
		return nil
	}

	species, err := s.speciesService.GetSpecies(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"species": species})
}

// GetSpeciesTrees handles GET /api/species/:id/trees
// @Summary Active trees of a species
// @Tags species
// @Produce json
// @Param id path int true "Species ID"
// @Param minLat query number false "Bounding box"
// @Param maxLat query number false "Bounding box"
// @Param minLng query number false "Bounding box"
// @Param maxLng query number false "Bounding box"
// @Success 200 {object} object{trees=[]models.Tree,total=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /species/{id}/trees [get]
func (s *Server) GetSpeciesTrees(c *fiber.Ctx) error {
	id, err := parseIntID(c, "id")
	if err != nil {
		return nil
	}

	q, err := validation.ParseList(validation.ListParams{
		MinLat: c.Query("minLat"),
		MaxLat: c.Query("maxLat"),
		MinLng: c.Query("minLng"),
		MaxLng: c.Query("maxLng"),
	})
	if err != nil {
		return models.Respond(c, err)
	}

	trees, err := s.treeService.TreesBySpecies(c.UserContext(), id, q.BBox)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"trees": nonNilTrees(trees),
		"total": len(trees),
	})
}
