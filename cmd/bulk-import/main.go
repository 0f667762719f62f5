package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/database"
	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

type options struct {
	MaxBytes int64 `long:"max-bytes" description:"Reject files larger than this many bytes (defaults to the configured import limit)"`
	Verbose  bool  `short:"v" long:"verbose" description:"Log at debug level"`
	Args     struct {
		File string `positional-arg-name:"FILE" description:"CSV file to import"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	appLogger, err := logger.New(level, "text")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.Open(cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db, appLogger); err != nil {
		appLogger.Fatal("Failed to migrate database", "error", err)
	}

	f, err := os.Open(opts.Args.File)
	if err != nil {
		appLogger.Fatal("Failed to open file", "file", opts.Args.File, "error", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		appLogger.Fatal("Failed to stat file", "file", opts.Args.File, "error", err)
	}

	maxBytes := cfg.Import.MaxBytes
	if opts.MaxBytes > 0 {
		maxBytes = opts.MaxBytes
	}
	im := importer.New(recipestore.NewGormStore(db), appLogger, importer.WithMaxBytes(maxBytes))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = requestctx.WithCaller(ctx, requestctx.Caller{Role: requestctx.RoleAdmin, Name: "cli"})

	report, err := im.ImportUpload(ctx, info.Name(), info.Size(), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rows: %d  Imported: %d  Updated: %d  Skipped: %d\n",
		report.TotalRows, report.Imported, report.Updated, report.Skipped)
	for _, msg := range report.Errors {
		fmt.Println("  " + msg)
	}
}
