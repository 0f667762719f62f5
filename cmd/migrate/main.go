package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"

	"github.com/pageza/cookistry/backend/internal/database"
)

type options struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"PostgreSQL connection URL" required:"true"`
	Rollback    int    `long:"rollback" description:"Number of migrations to roll back instead of migrating up"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	db, err := sql.Open("postgres", opts.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if opts.Rollback > 0 {
		if err := database.RollbackMigrations(db, opts.Rollback); err != nil {
			log.Fatalf("failed to roll back: %v", err)
		}
		fmt.Printf("Rolled back %d migration(s)\n", opts.Rollback)
		return
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	fmt.Printf("Database at version %d (dirty=%t)\n", version, dirty)
}
