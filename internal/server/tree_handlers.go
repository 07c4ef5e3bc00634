package server

import (
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/service"
	"fruitmap/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type treePagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Pages  int   `json:"pages"`
}

func nonNilTrees(trees []models.Tree) []models.Tree {
	if trees == nil {
		return []models.Tree{}
	}
	return trees
}

// ListTrees handles GET /api/trees
// @Summary List trees
// @Description Filter by column values and either a bounding box or a radius around a point
// @Tags trees
// @Produce json
// @Param speciesId query int false "Species"
// @Param accessibility query string false "public, community, private-permission or restricted"
// @Param status query string false "active, inactive, seasonal or removed"
// @Param limit query int false "Page size (1-500)"
// @Param offset query int false "Offset"
// @Param minLat query number false "Bounding box"
// @Param maxLat query number false "Bounding box"
// @Param minLng query number false "Bounding box"
// @Param maxLng query number false "Bounding box"
// @Param lat query number false "Radius center"
// @Param lng query number false "Radius center"
// @Param radius query number false "Radius in km"
// @Success 200 {object} object{trees=[]models.Tree,pagination=object}
// @Failure 400 {object} models.FieldErrorsResponse
// @Router /trees [get]
func (s *Server) ListTrees(c *fiber.Ctx) error {
	q, err := validation.ParseList(validation.ListParams{
		SpeciesID:     c.Query("speciesId"),
		Accessibility: c.Query("accessibility"),
		Status:        c.Query("status"),
		Limit:         c.Query("limit"),
		Offset:        c.Query("offset"),
		MinLat:        c.Query("minLat"),
		MaxLat:        c.Query("maxLat"),
		MinLng:        c.Query("minLng"),
		MaxLng:        c.Query("maxLng"),
		Lat:           c.Query("lat"),
		Lng:           c.Query("lng"),
		Radius:        c.Query("radius"),
	})
	if err != nil {
		return models.Respond(c, err)
	}

	in := service.ListTreesInput{
		SpeciesID:     q.SpeciesID,
		Accessibility: q.Accessibility,
		Status:        q.Status,
		Limit:         q.Limit,
		Offset:        q.Offset,
		BBox:          q.BBox,
	}
	if q.Center != nil {
		in.Near = &service.NearQuery{Center: *q.Center, RadiusKm: q.RadiusKm}
	}

	page, err := s.treeService.ListTrees(c.UserContext(), in)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"trees": nonNilTrees(page.Trees),
		"pagination": treePagination{
			Total:  page.Total,
			Limit:  page.Limit,
			Offset: page.Offset,
			Pages:  page.Pages,
		},
	})
}

// SearchTrees handles GET /api/trees/search
// @Summary Search trees
// @Tags trees
// @Produce json
// @Param query query string false "Free text"
// @Param species query int false "Species"
// @Param lat query number false "Center latitude"
// @Param lng query number false "Center longitude"
// @Param radius query number false "Radius in km (0.1-50)"
// @Success 200 {object} object{trees=[]models.Tree,total=int}
// @Failure 400 {object} models.FieldErrorsResponse
// @Router /trees/search [get]
func (s *Server) SearchTrees(c *fiber.Ctx) error {
	q, err := validation.ParseSearch(validation.SearchParams{
		Query:   c.Query("query", c.Query("q")),
		Species: c.Query("species"),
		Lat:     c.Query("lat"),
		Lng:     c.Query("lng"),
		Radius:  c.Query("radius"),
	})
	if err != nil {
		return models.Respond(c, err)
	}

	in := service.SearchTreesInput{Query: q.Query, SpeciesID: q.SpeciesID}
	if q.Center != nil {
		in.Near = &service.NearQuery{Center: *q.Center, RadiusKm: q.RadiusKm}
	}

	trees, err := s.treeService.SearchTrees(c.UserContext(), in)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"trees": nonNilTrees(trees),
		"total": len(trees),
	})
}

// GetTree handles GET /api/trees/:id
// @Summary Get a tree
// @Tags trees
// @Produce json
// @Param id path string true "Tree ID"
// @Success 200 {object} object{tree=models.Tree}
// @Failure 404 {object} models.ErrorResponse
// @Router /trees/{id} [get]
func (s *Server) GetTree(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	tree, err := s.treeService.GetTree(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"tree": tree})
}

// CreateTree handles POST /api/trees
// @Summary Submit a tree
// @Tags trees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validation.CreateTreeRequest true "Tree"
// @Success 201 {object} object{message=string,tree=models.Tree}
// @Failure 400 {object} models.FieldErrorsResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /trees [post]
func (s *Server) CreateTree(c *fiber.Ctx) error {
	var req validation.CreateTreeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		return models.Respond(c, err)
	}

	tree, err := s.treeService.CreateTree(c.UserContext(), service.CreateTreeInput{
		ContributorID: middleware.UserID(c),
		SpeciesID:     *req.SpeciesID,
		Location:      string(req.Location),
		Title:         req.Title,
		Description:   req.Description,
		Accessibility: req.Accessibility,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Tree created successfully",
		"tree":    tree,
	})
}

// UpdateTree handles PATCH /api/trees/:id
// @Summary Update a tree
// @Description Only the contributor or an admin may update
// @Tags trees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tree ID"
// @Param request body validation.UpdateTreeRequest true "Changed fields"
// @Success 200 {object} object{message=string,tree=models.Tree}
// @Failure 400 {object} models.FieldErrorsResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /trees/{id} [patch]
func (s *Server) UpdateTree(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req validation.UpdateTreeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		return models.Respond(c, err)
	}

	in := service.UpdateTreeInput{
		UserID:        middleware.UserID(c),
		TreeID:        id,
		SpeciesID:     req.SpeciesID,
		Title:         req.Title,
		Description:   req.Description,
		Accessibility: req.Accessibility,
		Status:        req.Status,
	}
	if req.Location != nil {
		loc := string(*req.Location)
		in.Location = &loc
	}

	tree, err := s.treeService.UpdateTree(c.UserContext(), in)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Tree updated successfully",
		"tree":    tree,
	})
}

// DeleteTree handles DELETE /api/trees/:id
// @Summary Delete a tree
// @Description Only the contributor or an admin may delete
// @Tags trees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tree ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /trees/{id} [delete]
func (s *Server) DeleteTree(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	err = s.treeService.DeleteTree(c.UserContext(), service.DeleteTreeInput{
		UserID: middleware.UserID(c),
		TreeID: id,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{"message": "Tree deleted successfully"})
}
