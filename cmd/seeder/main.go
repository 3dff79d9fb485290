package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/locvowork/sheet_aggregator/internal/config"
	"github.com/locvowork/sheet_aggregator/internal/database"
	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/internal/seed"
)

func main() {
	// Define flags
	action := flag.String("action", "seed", "Action to perform: seed, clear")
	file := flag.String("file", "", "Field data JSON file to seed")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt for clear")

	flag.Parse()

	ctx := context.Background()

	fmt.Println("🚀 Process Field Seeder")
	fmt.Println(strings.Repeat("=", 50))

	if err := config.LoadEnvConfig(); err != nil {
		log.Fatal(err)
	}
	cfg := config.DefaultEnvConfig
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)

	if cfg.DATASTORE_PROJECT_ID == "" {
		log.Fatal("DATASTORE_PROJECT_ID is not set")
	}

	fmt.Println("📡 Connecting to Datastore...")
	dsClient, err := database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID, cfg.DATASTORE_KIND)
	if err != nil {
		logger.ErrorLog(ctx, err, "Failed to connect to datastore")
		log.Fatal(err)
	}
	defer dsClient.Close()

	seeder := seed.NewDataSeeder(dsClient)

	// Execute action
	switch *action {
	case "seed":
		performSeed(ctx, seeder, *file)

	case "clear":
		performClear(ctx, seeder, *yes)

	default:
		fmt.Printf("❌ Unknown action: %s\n", *action)
		flag.PrintDefaults()
		os.Exit(2)
	}

	fmt.Println("\n✅ Done!")
}

func performSeed(ctx context.Context, seeder *seed.DataSeeder, file string) {
	if file == "" {
		log.Fatal("❌ -file is required for seed")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("❌ Reading %s failed: %v", file, err)
	}
	n, err := seeder.SeedPayload(ctx, data)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	fmt.Printf("📊 Stored %d process fields from %s\n", n, file)
}

func performClear(ctx context.Context, seeder *seed.DataSeeder, yes bool) {
	if !yes {
		fmt.Println("⚠️  This will delete all process fields!")
		fmt.Print("Continue? (yes/no): ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" {
			fmt.Println("Cancelled.")
			return
		}
	}
	if _, err := seeder.ClearData(ctx); err != nil {
		log.Fatalf("❌ Clear failed: %v", err)
	}
}
