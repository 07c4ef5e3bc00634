package server

import (
	"time"

	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/service"
	"fruitmap/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// authUser is the account slice returned by register and login.
type authUser struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	FullName *string `json:"fullName"`
}

type profileUser struct {
	authUser
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newAuthUser(u *models.User) authUser {
	return authUser{ID: u.ID, Email: u.Email, Username: u.Username, FullName: u.FullName}
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return a signed token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.RegisterRequest true "Registration"
// @Success 201 {object} object{message=string,token=string,user=object}
// @Failure 400 {object} models.FieldErrorsResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req validation.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		return models.Respond(c, err)
	}

	result, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   result.Token,
		"user":    newAuthUser(result.User),
	})
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.LoginRequest true "Credentials"
// @Success 200 {object} object{message=string,token=string,user=object}
// @Failure 400 {object} models.FieldErrorsResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req validation.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		return models.Respond(c, err)
	}

	result, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   result.Token,
		"user":    newAuthUser(result.User),
	})
}

// Profile handles GET /api/auth/profile
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=object}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/profile [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	user, err := s.authService.GetUserByID(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User not found"))
	}

	return c.JSON(fiber.Map{
		"user": profileUser{
			authUser:  newAuthUser(user),
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
	})
}
