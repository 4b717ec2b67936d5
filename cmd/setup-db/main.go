package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"tenant-integrity-service/config"
	"tenant-integrity-service/database"

	"github.com/joho/godotenv"
)

// schema mirrors the entity tables the integrity engine scans. Ownership
// columns are deliberately nullable; finding and repairing the gaps is
// the whole point of the service.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS workspaces (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		tenant_id  TEXT,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id        TEXT PRIMARY KEY,
		email     TEXT NOT NULL,
		role      TEXT NOT NULL DEFAULT 'member',
		tenant_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		tenant_id    TEXT,
		workspace_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		tenant_id    TEXT,
		client_id    TEXT,
		workspace_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		tenant_id   TEXT,
		project_id  TEXT,
		created_by  TEXT,
		is_personal BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		tenant_id    TEXT,
		workspace_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS time_entries (
		id           TEXT PRIMARY KEY,
		tenant_id    TEXT,
		project_id   TEXT,
		user_id      TEXT,
		workspace_id TEXT,
		minutes      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workspaces_tenant ON workspaces (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_tenant ON clients (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_tenant ON projects (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_tenant ON tasks (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_tenant ON teams (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_time_entries_tenant ON time_entries (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_tenant ON users (tenant_id)`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	db, err := database.NewPostgresService(&database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: 2,
		MinConns: 1,
	})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range statements {
		if _, err := db.Pool().Exec(ctx, stmt); err != nil {
			log.Fatalf("Schema statement failed: %v\n%s", err, stmt)
		}
	}

	fmt.Println("Database schema is up to date")
	os.Exit(0)
}
