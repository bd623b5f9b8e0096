package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/joho/godotenv"

	_ "github.com/lib/pq"
)

func main() {
	action := flag.String("action", "up", "Migration action: up, down, version, goto, force")
	version := flag.Int("version", 0, "Target version for goto/force")
	path := flag.String("path", "./migrations", "Migration files directory")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if err := logger.InitLogger(); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", config.AppConfig.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrationPath := *path
	if abs, err := filepath.Abs(migrationPath); err == nil {
		migrationPath = abs
	}

	manager, err := database.NewMigrationManager(db, migrationPath, logger.Logger)
	if err != nil {
		log.Fatalf("Failed to create migration manager: %v", err)
	}
	defer manager.Close()

	switch *action {
	case "up":
		if err := manager.Up(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("Migrations completed successfully")

	case "down":
		if err := manager.Down(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("Rollback completed successfully")

	case "version":
		v, dirty, err := manager.Version()
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		fmt.Printf("Current version: %d", v)
		if dirty {
			fmt.Printf(" (dirty - manual intervention required)")
		}
		fmt.Println()

	case "goto":
		if *version <= 0 {
			log.Fatal("Version must be specified for goto action")
		}
		if err := manager.UpTo(uint(*version)); err != nil {
			log.Fatalf("Migration to version %d failed: %v", *version, err)
		}
		fmt.Printf("Successfully migrated to version %d\n", *version)

	case "force":
		if *version <= 0 {
			log.Fatal("Version must be specified for force action")
		}
		if err := manager.ForceVersion(uint(*version)); err != nil {
			log.Fatalf("Force version failed: %v", err)
		}
		fmt.Printf("Version forced to %d\n", *version)

	default:
		fmt.Printf("Unknown action: %s\n", *action)
		fmt.Println("Available actions: up, down, version, goto, force")
		os.Exit(1)
	}
}
