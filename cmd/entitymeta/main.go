package main

import (
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/conduit-lang/entitymeta/internal/cli/commands"
)

func main() {
	// Execute has already rendered the error
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
