package main

import (
	"prism/internal/config" // Custom import path (Config)
	"prism/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Migrate users, ledgers and transactions
}
