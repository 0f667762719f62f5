package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/database"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

type options struct {
	Username string `short:"u" long:"username" description:"Admin username" required:"true"`
	Email    string `short:"e" long:"email" description:"Admin email"`
	Password string `long:"password" env:"ADMIN_PASSWORD" description:"Admin password (read from stdin when empty)"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	password := opts.Password
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Failed to read password: %v", err)
		}
		password = strings.TrimSpace(line)
	}
	if len(password) < 8 {
		log.Fatal("Password must be at least 8 characters")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg.Logging.Level, "text")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	db, err := database.Open(cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db, appLogger); err != nil {
		appLogger.Fatal("Failed to migrate database", "error", err)
	}

	auth := service.NewAuthService(db, cfg.Auth, appLogger)
	admin, err := auth.CreateAdmin(context.Background(), opts.Username, opts.Email, password)
	if err != nil {
		appLogger.Fatal("Failed to create admin", "username", opts.Username, "error", err)
	}
	fmt.Printf("Created admin %q (id %d)\n", admin.Username, admin.ID)
}
