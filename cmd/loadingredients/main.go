// Package main bulk-loads the ingredient catalog from a JSON file.
//
// The file holds an array of {"name", "measurement_unit"} objects. Records that
// already exist are skipped, so the loader can be re-run safely.
//
// Usage:
//
//	go run ./cmd/loadingredients -file data/ingredients.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"foodgram-api/config"
	"foodgram-api/logger"
	"foodgram-api/repositories"
	"foodgram-api/services"
)

var file = flag.String("file", "data/ingredients.json", "path to the ingredients JSON file")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Environment: cfg.Environment, Level: cfg.LogLevel})

	db, err := config.InitDB(cfg.Database, log)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Error("open ingredients file", "path", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	svc := services.NewIngredientService(repositories.NewIngredientRepository(db), nil, log)
	inserted, err := svc.LoadIngredients(context.Background(), f)
	if err != nil {
		log.Error("load ingredients", "path", *file, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d new ingredients from %s\n", inserted, *file)
}
