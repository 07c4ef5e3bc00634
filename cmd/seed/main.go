// Command seed loads the species catalog and, optionally, demo content.
package main

import (
	"context"
	"flag"
	"log"

	"fruitmap/internal/config"
	"fruitmap/internal/database"
	"fruitmap/internal/repository"
	"fruitmap/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	demo := flag.Bool("demo", false, "Also generate demo users, trees and reviews")
	numUsers := flag.Int("users", defaults.Users, "Number of demo users")
	numTrees := flag.Int("trees", defaults.Trees, "Number of demo trees")
	reviews := flag.Int("reviews", defaults.ReviewsPerTree, "Reviews per demo tree")
	lat := flag.Float64("lat", defaults.Center.Lat, "Latitude the demo trees are scattered around")
	lng := flag.Float64("lng", defaults.Center.Lng, "Longitude the demo trees are scattered around")
	spread := flag.Float64("spread", defaults.SpreadKm, "Scatter radius in kilometers")
	clean := flag.Bool("clean", false, "Remove existing demo content first")
	fast := flag.Bool("fast", false, "Hash demo passwords at minimum bcrypt cost")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() && (*demo || *clean) {
		log.Fatal("Refusing to generate or clear demo data in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	if *clean {
		if err := seed.ClearDemo(ctx, db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Println("Existing demo content removed")
	}

	n, err := seed.Species(ctx, repository.NewSpeciesRepository(db))
	if err != nil {
		log.Fatalf("Species seeding failed: %v", err)
	}
	log.Printf("%d species in catalog", n)

	if !*demo {
		return
	}

	opts := defaults
	opts.Users = *numUsers
	opts.Trees = *numTrees
	opts.ReviewsPerTree = *reviews
	opts.Center.Lat = *lat
	opts.Center.Lng = *lng
	opts.SpreadKm = *spread
	opts.FastHash = *fast

	summary, err := seed.NewFactory(db, opts).Demo(ctx)
	if err != nil {
		log.Fatalf("Demo seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d trees, %d reviews", summary.Users, summary.Trees, summary.Reviews)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
