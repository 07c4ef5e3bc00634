package server

import (
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/service"
	"fruitmap/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type reviewPagination struct {
	Total         int64   `json:"total"`
	Limit         int     `json:"limit"`
	Offset        int     `json:"offset"`
	Page          int     `json:"page"`
	Pages         int     `json:"pages"`
	AverageRating float64 `json:"averageRating"`
}

// CreateReview handles POST /api/reviews
// @Summary Review a tree
// @Description A user may review each tree once
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validation.CreateReviewRequest true "Review"
// @Success 201 {object} object{message=string,review=models.Review}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews [post]
func (s *Server) CreateReview(c *fiber.Ctx) error {
	var req validation.CreateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		return models.Respond(c, err)
	}

	review, err := s.reviewService.CreateReview(c.UserContext(), service.CreateReviewInput{
		UserID:  middleware.UserID(c),
		TreeID:  req.TreeID,
		Rating:  *req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review created successfully",
		"review":  review,
	})
}

// GetTreeReviews handles GET /api/reviews/tree/:treeId
// @Summary Reviews of a tree
// @Description Newest first. page may be used instead of offset.
// @Tags reviews
// @Produce json
// @Param treeId path string true "Tree ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param page query int false "1-based page"
// @Success 200 {object} object{reviews=[]models.Review,pagination=object}
// @Router /reviews/tree/{treeId} [get]
func (s *Server) GetTreeReviews(c *fiber.Ctx) error {
	treeID, err := parseUUID(c, "treeId")
	if err != nil {
		return nil
	}

	p := parsePagination(c, service.DefaultReviewPageSize)
	page, err := s.reviewService.ListForTree(c.UserContext(), treeID, p.Limit, p.Offset)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"reviews": page.Reviews,
		"pagination": reviewPagination{
			Total:         page.Total,
			Limit:         page.Limit,
			Offset:        page.Offset,
			Page:          page.Page,
			Pages:         page.Pages,
			AverageRating: page.AverageRating,
		},
	})
}

// GetReviewStats handles GET /api/reviews/tree/:treeId/stats
// @Summary Review statistics of a tree
// @Tags reviews
// @Produce json
// @Param treeId path string true "Tree ID"
// @Success 200 {object} models.ReviewStats
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/tree/{treeId}/stats [get]
func (s *Server) GetReviewStats(c *fiber.Ctx) error {
	treeID, err := parseUUID(c, "treeId")
	if err != nil {
		return nil
	}

	stats, err := s.reviewService.Stats(c.UserContext(), treeID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(stats)
}

// UpdateReview handles PATCH /api/reviews/:reviewId
// @Summary Update a review
// @Description Only the author may update
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reviewId path string true "Review ID"
// @Param request body validation.UpdateReviewRequest true "Changed fields"
// @Success 200 {object} object{message=string,review=models.Review}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/{reviewId} [patch]
func (s *Server) UpdateReview(c *fiber.Ctx) error {
	reviewID, err := parseUUID(c, "reviewId")
	if err != nil {
		return nil
	}

	var req validation.UpdateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		return models.Respond(c, err)
	}

	review, err := s.reviewService.UpdateReview(c.UserContext(), service.UpdateReviewInput{
		UserID:   middleware.UserID(c),
		ReviewID: reviewID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Review updated successfully",
		"review":  review,
	})
}

// DeleteReview handles DELETE /api/reviews/:reviewId
// @Summary Delete a review
// @Description The author or an admin may delete
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param reviewId path string true "Review ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/{reviewId} [delete]
func (s *Server) DeleteReview(c *fiber.Ctx) error {
	reviewID, err := parseUUID(c, "reviewId")
	if err != nil {
		return nil
	}

	err = s.reviewService.DeleteReview(c.UserContext(), service.DeleteReviewInput{
		UserID:   middleware.UserID(c),
		ReviewID: reviewID,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{"message": "Review deleted successfully"})
}
