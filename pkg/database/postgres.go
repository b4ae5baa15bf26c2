package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"guest-snapper/config"
	"guest-snapper/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rubenv/sql-migrate"
)

var DB *sql.DB

func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
}

// Connect opens the pgx-backed pool, verifies it and stores it in DB.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(50)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	log.Println("Database connection established")
	return db, nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

func Ping(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	return DB.PingContext(ctx)
}

// HealthCheck pings the database and runs a trivial query.
func HealthCheck(ctx context.Context) error {
	if err := Ping(ctx); err != nil {
		return err
	}
	var one int
	return DB.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	return exists, err
}

func TableCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := DB.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&count)
	return count, err
}

// MigrationSource is the embedded schema history.
func MigrationSource() migrate.MigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations.FS,
		Root:       ".",
	}
}

// Migrate applies pending up migrations and returns how many ran.
func Migrate(db *sql.DB) (int, error) {
	n, err := migrate.Exec(db, "postgres", MigrationSource(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}

// Rollback undoes up to steps applied migrations, all of them when steps is 0.
func Rollback(db *sql.DB, steps int) (int, error) {
	n, err := migrate.ExecMax(db, "postgres", MigrationSource(), migrate.Down, steps)
	if err != nil {
		return n, fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return n, nil
}

// AppliedMigrations lists the ids of migrations recorded as applied.
func AppliedMigrations(db *sql.DB) ([]string, error) {
	records, err := migrate.GetMigrationRecords(db, "postgres")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Id)
	}
	return ids, nil
}
