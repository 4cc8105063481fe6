package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract/postgres"
)

// Applies the sandbox contract schema. With a migration name, e.g.
// "create_polls.down", only that file is executed.
func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if len(os.Args) < 2 {
		if err := postgres.Apply(ctx, db); err != nil {
			log.WithError(err).Fatal("Failed to apply migrations")
		}
		log.Info("All migrations executed successfully.")
		return
	}

	migrationName := os.Args[1]
	if err := postgres.ApplyNamed(ctx, db, migrationName); err != nil {
		log.WithError(err).WithField("migration", migrationName).Fatal("Failed to execute migration")
	}
	log.WithField("migration", migrationName).Info("Migration file executed successfully.")
}
