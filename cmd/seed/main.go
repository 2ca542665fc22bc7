package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"skyvault/internal/config"
	"skyvault/internal/notify"
	"skyvault/internal/plans"
	"skyvault/internal/repository/postgres"
	postgresDrive "skyvault/internal/repository/postgres/drive"
	"skyvault/internal/seed"
	serviceDrive "skyvault/internal/service/drive"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed the demo tree")
	clearData := flag.Bool("clear-data", false, "Clear the seed user's data (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	seedUserID := os.Getenv("SEED_USER_ID")
	if seedUserID == "" {
		seedUserID = "00000000-0000-0000-0000-000000000001"
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s, user: %s)", cfg.Environment, cfg.TablePrefix, seedUserID)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	// Clear the seed user's data before (re)seeding
	log.Println("Clearing existing seed data...")
	if err := clearOwnerData(ctx, pool, tables, seedUserID); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("Data cleared successfully")
		return
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgresDrive.NewFolderRepository(repoConfig)
	fileRepo := postgresDrive.NewFileRepository(repoConfig)
	usageRepo := postgresDrive.NewUsageRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	planRegistry, err := plans.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load plan registry: %v", err)
	}

	// In-process collaborators: seeded objects live in memory and every
	// fixture scans clean
	store := seed.NewLocalObjectStore()
	assessor := seed.CleanAssessor{}
	notifier := notify.NewLogNotifier(logger)

	// Create services
	validator := serviceDrive.NewResourceValidator(folderRepo, fileRepo)
	access := serviceDrive.NewAccessResolver()
	folderService := serviceDrive.NewFolderService(folderRepo, fileRepo, usageRepo, store, txManager, validator, access, notifier, logger)
	fileService := serviceDrive.NewFileService(fileRepo, folderRepo, usageRepo, store, assessor, planRegistry, txManager, validator, access, notifier, logger)

	// Apply the demo fixture
	fixture, err := seed.Load()
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}
	seeder := seed.NewSeeder(folderService, fileService, store, logger)
	if err := seeder.Apply(ctx, seedUserID, fixture); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Println("Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createFolders := `
		CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			parent_id TEXT,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			tags JSONB NOT NULL DEFAULT '[]',
			file_count BIGINT NOT NULL DEFAULT 0,
			folder_count BIGINT NOT NULL DEFAULT 0,
			total_size BIGINT NOT NULL DEFAULT 0,
			is_trash BOOLEAN NOT NULL DEFAULT FALSE,
			is_archive BOOLEAN NOT NULL DEFAULT FALSE,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			shared_with JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			trashed_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createFolders); err != nil {
		return err
	}

	createFiles := `
		CREATE TABLE IF NOT EXISTS ` + tables.Files + ` (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			folder_id TEXT,
			name TEXT NOT NULL,
			original_name TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
			status TEXT NOT NULL,
			current_version INTEGER NOT NULL DEFAULT 1,
			storage JSONB NOT NULL DEFAULT '{}',
			risk JSONB,
			shared_with JSONB NOT NULL DEFAULT '[]',
			download_count BIGINT NOT NULL DEFAULT 0,
			last_download_at TIMESTAMPTZ,
			quarantined_at TIMESTAMPTZ,
			restored_at TIMESTAMPTZ,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createFiles); err != nil {
		return err
	}

	createVersions := `
		CREATE TABLE IF NOT EXISTS ` + tables.FileVersions + ` (
			file_id TEXT NOT NULL REFERENCES ` + tables.Files + `(id) ON DELETE CASCADE,
			version INTEGER NOT NULL,
			storage_key TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT '',
			uploaded_by TEXT NOT NULL DEFAULT '',
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (file_id, version)
		)
	`
	if _, err := pool.Exec(ctx, createVersions); err != nil {
		return err
	}

	createUsage := `
		CREATE TABLE IF NOT EXISTS ` + tables.Usage + ` (
			owner_id TEXT PRIMARY KEY,
			storage_used BIGINT NOT NULL DEFAULT 0,
			plan TEXT NOT NULL DEFAULT 'free',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUsage); err != nil {
		return err
	}

	// Sibling uniqueness is enforced per parent for live entries only; root
	// level (NULL parent) gets its own owner-scoped partial index because
	// NULLs never collide in a plain unique constraint
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_owner ON ` + tables.Folders + `(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_parent ON ` + tables.Folders + `(parent_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_sibling_name ON ` + tables.Folders + `(parent_id, name) WHERE NOT is_trash AND parent_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_root_name ON ` + tables.Folders + `(owner_id, name) WHERE NOT is_trash AND parent_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_owner ON ` + tables.Files + `(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_folder ON ` + tables.Files + `(folder_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_sibling_name ON ` + tables.Files + `(folder_id, name) WHERE status <> 'deleted' AND folder_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_root_name ON ` + tables.Files + `(owner_id, name) WHERE status <> 'deleted' AND folder_id IS NULL`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.FileVersions,
		tables.Files,
		tables.Folders,
		tables.Usage,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  dropped %s", table)
	}

	return nil
}

// clearOwnerData removes one owner's folders, files and usage
func clearOwnerData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, ownerID string) error {
	statements := []string{
		"DELETE FROM " + tables.FileVersions + " WHERE file_id IN (SELECT id FROM " + tables.Files + " WHERE owner_id = $1)",
		"DELETE FROM " + tables.Files + " WHERE owner_id = $1",
		"DELETE FROM " + tables.Folders + " WHERE owner_id = $1",
		"DELETE FROM " + tables.Usage + " WHERE owner_id = $1",
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt, ownerID); err != nil {
			return err
		}
	}
	return nil
}
