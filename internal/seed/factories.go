package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"fruitmap/internal/geo"
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated demo account.
const DemoPassword = "password123"

const kmPerDegree = 111.32

var places = []string{"park", "school", "river", "plaza", "church", "market", "bus stop", "community garden"}

// Options controls how much demo content is generated and where.
type Options struct {
	Users          int
	Trees          int
	ReviewsPerTree int
	Center         geo.Point
	SpreadKm       float64
	// FastHash uses the minimum bcrypt cost. Only for tests and local runs.
	FastHash bool
	// RandSeed makes output reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions scatters demo trees around São Paulo.
func DefaultOptions() Options {
	return Options{
		Users:          20,
		Trees:          100,
		ReviewsPerTree: 3,
		Center:         geo.Point{Lat: -23.5505, Lng: -46.6333},
		SpreadKm:       15,
	}
}

// Summary reports what Demo created.
type Summary struct {
	Users   int
	Trees   int
	Reviews int
}

// Factory builds demo users, trees and reviews and persists them.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed)}
}

// CreateUser persists a demo account. Overrides run before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, err
	}

	fullName := f.faker.Name()
	user := &models.User{
		Email:    strings.ToLower(f.faker.Email()),
		Username: fmt.Sprintf("%s_%d", sanitizeUsername(f.faker.Username()), f.faker.Number(100, 999)),
		Password: string(hash),
		FullName: &fullName,
		Role:     models.RoleUser,
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// CreateTree persists a demo tree of species near the configured center.
func (f *Factory) CreateTree(ctx context.Context, contributor *models.User, species models.TreeSpecies, overrides ...func(*models.Tree)) (*models.Tree, error) {
	p := f.randomPoint()
	location, err := geo.NormalizeLocation(fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng))
	if err != nil {
		return nil, err
	}

	description := f.faker.Sentence(12)
	status := models.TreeActive
	if f.faker.Number(1, 10) == 1 {
		status = models.TreeSeasonal
	}

	tree := &models.Tree{
		SpeciesID:     species.ID,
		Location:      location,
		ContributorID: contributor.ID,
		Title:         fmt.Sprintf("%s tree by the %s", titleCase(species.Name), f.faker.RandomString(places)),
		Description:   &description,
		Accessibility: f.faker.RandomString(models.Accessibilities),
		Status:        status,
	}
	for _, override := range overrides {
		override(tree)
	}

	if err := f.db.WithContext(ctx).Create(tree).Error; err != nil {
		return nil, fmt.Errorf("create tree: %w", err)
	}
	return tree, nil
}

// CreateReview persists a review of tree by author.
func (f *Factory) CreateReview(ctx context.Context, author *models.User, tree *models.Tree) (*models.Review, error) {
	comment := f.faker.Sentence(10)
	review := &models.Review{
		UserID:  author.ID,
		TreeID:  tree.ID,
		Rating:  f.faker.Number(1, 5),
		Comment: &comment,
	}
	if err := f.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

// Demo generates users, then trees spread across the catalog species, then
// reviews. A user never reviews the same tree twice. The species catalog
// must already be loaded.
func (f *Factory) Demo(ctx context.Context) (*Summary, error) {
	var species []models.TreeSpecies
	if err := f.db.WithContext(ctx).Order("id").Find(&species).Error; err != nil {
		return nil, err
	}
	if len(species) == 0 {
		return nil, errors.New("no species found; seed the catalog first")
	}

	summary := &Summary{}
	users := make([]*models.User, 0, f.opts.Users)
	for i := 0; i < f.opts.Users; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return summary, err
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	for i := 0; i < f.opts.Trees; i++ {
		contributor := users[i%len(users)]
		tree, err := f.CreateTree(ctx, contributor, species[f.faker.Number(0, len(species)-1)])
		if err != nil {
			return summary, err
		}
		summary.Trees++

		reviews := min(f.opts.ReviewsPerTree, len(users))
		start := f.faker.Number(0, len(users)-1)
		for j := 0; j < reviews; j++ {
			if _, err := f.CreateReview(ctx, users[(start+j)%len(users)], tree); err != nil {
				return summary, err
			}
			summary.Reviews++
		}
	}

	middleware.Logger.InfoContext(ctx, "demo data seeded",
		slog.Int("users", summary.Users),
		slog.Int("trees", summary.Trees),
		slog.Int("reviews", summary.Reviews),
	)
	return summary, nil
}

// ClearDemo removes reviews, trees and non-admin users. Species stay.
func ClearDemo(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM reviews").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM trees").Error; err != nil {
			return err
		}
		return tx.Where("role <> ?", models.RoleAdmin).Delete(&models.User{}).Error
	})
}

// randomPoint picks a uniform point within SpreadKm of the center.
func (f *Factory) randomPoint() geo.Point {
	spread := f.opts.SpreadKm
	if spread <= 0 {
		spread = 1
	}
	dist := spread * math.Sqrt(f.faker.Float64Range(0, 1))
	bearing := f.faker.Float64Range(0, 2*math.Pi)

	lat := f.opts.Center.Lat + dist*math.Cos(bearing)/kmPerDegree
	lat = math.Max(-89.9, math.Min(89.9, lat))
	lng := f.opts.Center.Lng + dist*math.Sin(bearing)/(kmPerDegree*math.Cos(lat*math.Pi/180))
	if lng > 180 {
		lng -= 360
	} else if lng < -180 {
		lng += 360
	}
	return geo.Point{Lat: lat, Lng: lng}
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) < 3 {
		out = "fruit" + out
	}
	if len(out) > 25 {
		out = out[:25]
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
