package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fruitmap/internal/auth"
	"fruitmap/internal/config"
	"fruitmap/internal/models"
	"fruitmap/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret"

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	args := m.Called(ctx, email, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockTreeRepository is a mock of the TreeRepository interface
type MockTreeRepository struct {
	mock.Mock
}

func (m *MockTreeRepository) GetByID(ctx context.Context, id string) (*models.Tree, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tree), args.Error(1)
}

func (m *MockTreeRepository) GetWithContributorAndSpecies(ctx context.Context, id string) (*models.Tree, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tree), args.Error(1)
}

func (m *MockTreeRepository) ListActive(ctx context.Context, speciesID *int) ([]models.Tree, error) {
	args := m.Called(ctx, speciesID)
	return args.Get(0).([]models.Tree), args.Error(1)
}

func (m *MockTreeRepository) List(ctx context.Context, filter repository.TreeFilter) ([]models.Tree, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Tree), args.Get(1).(int64), args.Error(2)
}

func (m *MockTreeRepository) Search(ctx context.Context, search repository.TreeSearch) ([]models.Tree, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]models.Tree), args.Error(1)
}

func (m *MockTreeRepository) Create(ctx context.Context, tree *models.Tree) error {
	args := m.Called(ctx, tree)
	return args.Error(0)
}

func (m *MockTreeRepository) Update(ctx context.Context, tree *models.Tree) error {
	args := m.Called(ctx, tree)
	return args.Error(0)
}

func (m *MockTreeRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSpeciesRepository is a mock of the SpeciesRepository interface
type MockSpeciesRepository struct {
	mock.Mock
}

func (m *MockSpeciesRepository) List(ctx context.Context) ([]models.SpeciesSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SpeciesSummary), args.Error(1)
}

func (m *MockSpeciesRepository) GetByID(ctx context.Context, id int) (*models.TreeSpecies, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TreeSpecies), args.Error(1)
}

func (m *MockSpeciesRepository) Upsert(ctx context.Context, species *models.TreeSpecies) error {
	args := m.Called(ctx, species)
	return args.Error(0)
}

// MockReviewRepository is a mock of the ReviewRepository interface
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) CreateUnique(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) ListByTree(ctx context.Context, treeID string, limit, offset int) ([]models.Review, int64, error) {
	args := m.Called(ctx, treeID, limit, offset)
	return args.Get(0).([]models.Review), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewRepository) AverageRating(ctx context.Context, treeID string) (float64, error) {
	args := m.Called(ctx, treeID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockReviewRepository) Count(ctx context.Context, treeID string) (int64, error) {
	args := m.Called(ctx, treeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) Distribution(ctx context.Context, treeID string) ([]models.RatingBucket, error) {
	args := m.Called(ctx, treeID)
	return args.Get(0).([]models.RatingBucket), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// testEnv bundles a wired server, its app and the repository mocks behind it.
type testEnv struct {
	server  *Server
	app     *fiber.App
	tokens  *auth.TokenManager
	users   *MockUserRepository
	trees   *MockTreeRepository
	species *MockSpeciesRepository
	reviews *MockReviewRepository
}

func testConfig() *config.Config {
	return &config.Config{
		Env:          "test",
		Port:         "5000",
		JWTSecret:    testSecret,
		JWTExpiry:    "1h",
		FrontendURL:  "http://localhost:3000",
		FeatureFlags: "live_map=on",
		RateLimitMax: 1000,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	env := &testEnv{
		tokens:  auth.NewTokenManager(cfg.JWTSecret, time.Hour),
		users:   new(MockUserRepository),
		trees:   new(MockTreeRepository),
		species: new(MockSpeciesRepository),
		reviews: new(MockReviewRepository),
	}
	env.server = newServer(cfg, env.tokens, env.users, env.trees, env.species, env.reviews)
	env.app = env.server.App()
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.tokens.Issue(userID, userID+"@example.com")
	require.NoError(t, err)
	return tok
}

// do sends a request; body is JSON-encoded unless nil. token may be empty.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func fieldMessages(t *testing.T, body map[string]any) map[string]string {
	t.Helper()
	list, ok := body["errors"].([]any)
	require.True(t, ok, "expected field errors, got %v", body)

	out := make(map[string]string, len(list))
	for _, item := range list {
		fe := item.(map[string]any)
		out[fe["field"].(string)] = fe["message"].(string)
	}
	return out
}
