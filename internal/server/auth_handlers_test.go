package server

import (
	"net/http"
	"testing"

	"fruitmap/internal/models"
	"fruitmap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("FindByEmailOrUsername", mock.Anything, "ana@example.com", "ana_1").Return(nil, nil)
		env.users.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.User).ID = "u-1"
			}).
			Return(nil)

		resp, body := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
			"email":    "  Ana@Example.com ",
			"password": "secret1",
			"username": "ana_1",
		}, "")

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "User registered successfully", body["message"])
		assert.NotEmpty(t, body["token"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "u-1", user["id"])
		assert.Equal(t, "ana@example.com", user["email"])
		assert.NotContains(t, user, "password")

		claims, err := env.tokens.Verify(body["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.ID)
		env.users.AssertExpectations(t)
	})

	t.Run("Validation", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
			"email":    "not-an-email",
			"password": "123",
			"username": "a!",
		}, "")

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		fields := fieldMessages(t, body)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
		assert.Contains(t, fields, "username")
		env.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("FindByEmailOrUsername", mock.Anything, "ana@example.com", "ana_1").
			Return(&models.User{ID: "u-0", Email: "ana@example.com"}, nil)

		resp, body := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
			"email":    "ana@example.com",
			"password": "secret1",
			"username": "ana_1",
		}, "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, repository.ErrUserExists, body["error"])
		assert.Equal(t, models.CodeConflict, body["code"])
	})

	t.Run("Malformed Body", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodPost, "/api/auth/register", "just a string", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid request body", body["error"])
	})
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	active := &models.User{ID: "u-1", Email: "ana@example.com", Username: "ana", Password: string(hash), IsActive: true}
	inactive := &models.User{ID: "u-2", Email: "bob@example.com", Username: "bob", Password: string(hash), IsActive: false}

	tests := []struct {
		name           string
		email          string
		password       string
		expectedStatus int
		expectedError  string
	}{
		{"Success", "ANA@example.com", "secret1", http.StatusOK, ""},
		{"Wrong Password", "ana@example.com", "nope", http.StatusUnauthorized, "Invalid email or password"},
		{"Unknown Email", "who@example.com", "secret1", http.StatusUnauthorized, "Invalid email or password"},
		{"Deactivated", "bob@example.com", "secret1", http.StatusForbidden, "Account is deactivated"},
		{"Missing Password", "ana@example.com", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(active, nil)
			env.users.On("GetByEmail", mock.Anything, "bob@example.com").Return(inactive, nil)
			env.users.On("GetByEmail", mock.Anything, "who@example.com").Return(nil, nil)

			resp, body := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
				"email":    tt.email,
				"password": tt.password,
			}, "")

			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
			}
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "Login successful", body["message"])
				assert.NotEmpty(t, body["token"])
				assert.Equal(t, "u-1", body["user"].(map[string]any)["id"])
			}
		})
	}
}

func TestProfile(t *testing.T) {
	t.Run("No Token", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodGet, "/api/auth/profile", nil, "")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Access denied. No token provided.", body["error"])
	})

	t.Run("Invalid Token", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.do(t, http.MethodGet, "/api/auth/profile", nil, "not.a.token")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.CodeTokenInvalid, body["code"])
	})

	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("GetByID", mock.Anything, "u-1").
			Return(&models.User{ID: "u-1", Email: "ana@example.com", Username: "ana", Role: models.RoleUser}, nil)

		resp, body := env.do(t, http.MethodGet, "/api/auth/profile", nil, env.token(t, "u-1"))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		user := body["user"].(map[string]any)
		assert.Equal(t, "ana", user["username"])
		assert.Equal(t, models.RoleUser, user["role"])
		assert.Contains(t, user, "createdAt")
	})

	t.Run("User Gone", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("GetByID", mock.Anything, "u-9").Return(nil, nil)

		resp, body := env.do(t, http.MethodGet, "/api/auth/profile", nil, env.token(t, "u-9"))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "User not found", body["error"])
	})
}
