// Schema migration runner for the test service database.
//
//	migrate [-path migrations] up
//	migrate [-path migrations] down [n]
//	migrate [-path migrations] version
//	migrate [-path migrations] force <version>
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/examind/proctor/internal/config"
)

func main() {
	var migrationDir string
	args := os.Args[1:]
	migrationDir = "migrations"
	if len(args) >= 2 && args[0] == "-path" {
		migrationDir = args[1]
		args = args[2:]
	}
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}

	switch args[0] {
	case "up":
		run(m.Up, "up")
	case "down":
		if len(args) >= 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				log.Fatalf("Invalid step count %q", args[1])
			}
			run(func() error { return m.Steps(-n) }, "down")
			return
		}
		run(m.Down, "down")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Version failed: %v", err)
		}
		fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
	case "force":
		if len(args) < 2 {
			log.Fatal("force requires a version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version: %v", err)
		}
		if err := m.Force(v); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		fmt.Printf("Forced version to %d\n", v)
	default:
		usage()
		os.Exit(2)
	}
}

func run(fn func() error, name string) {
	if err := fn(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Migrate %s failed: %v", name, err)
	}
	fmt.Printf("Migrated %s successfully\n", name)
}

func usage() {
	fmt.Println("Usage: migrate [-path migrations] <up|down [n]|version|force <version>>")
}
