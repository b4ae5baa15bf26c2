package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"guest-snapper/config"
	"guest-snapper/pkg/database"
)

const usage = `
Guest Snapper - Database CLI Tool

Usage:
  migrate [flags] [command]

Commands:
  up          Apply all pending migrations
  down        Roll back migrations (all of them unless -steps is set)
  status      Show connection status, applied migrations and tables

Flags:
  -steps int   Number of migrations to roll back with down (default 0 = all)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go -steps 1 down
  go run cmd/migrate/main.go status
`

func main() {
	steps := flag.Int("steps", 0, "Number of migrations to roll back")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	ctx := context.Background()
	cfg := config.LoadConfig()
	if _, err := database.Connect(ctx, cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "down":
		runMigrationsDown(*steps)
	case "status":
		showStatus(ctx)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("🚀 Running migrations UP...")

	n, err := database.Migrate(database.DB)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Printf("✅ Applied %d migration(s)", n)
}

func runMigrationsDown(steps int) {
	log.Println("⬇️  Rolling back migrations...")

	n, err := database.Rollback(database.DB, steps)
	if err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Printf("✅ Rolled back %d migration(s)", n)
}

func showStatus(ctx context.Context) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	applied, err := database.AppliedMigrations(database.DB)
	if err != nil {
		log.Printf("⚠️  Could not read migration records: %v", err)
	}
	for _, id := range applied {
		log.Printf("✅ Migration %s applied", id)
	}

	for _, table := range []string{"media"} {
		exists, err := database.TableExists(ctx, table)
		if err != nil {
			log.Printf("⚠️  Error checking table %s: %v", table, err)
			continue
		}
		if !exists {
			log.Printf("❌ Table %-20s does not exist", table)
			continue
		}
		count, _ := database.TableCount(ctx, table)
		log.Printf("✅ Table %-20s exists (%d rows)", table, count)
	}
}
