package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"skyvault/internal/auth"
	"skyvault/internal/config"
	"skyvault/internal/handler"
	"skyvault/internal/middleware"
	"skyvault/internal/notify"
	"skyvault/internal/plans"
	"skyvault/internal/repository/postgres"
	postgresDrive "skyvault/internal/repository/postgres/drive"
	"skyvault/internal/scanner"
	serviceDrive "skyvault/internal/service/drive"
	"skyvault/internal/storage"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer func() { _ = logFile.Close() }()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

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

	// Object storage collaborator
	store, err := storage.NewS3ObjectStore(ctx, storage.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Timeout:   cfg.S3Timeout,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	// Risk-assessment collaborator
	assessor := scanner.NewHTTPAssessor(cfg.ScannerURL, config.ScanTimeout, logger)

	// Quota plan registry
	planRegistry, err := plans.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load plan registry: %v", err)
	}
	logger.Info("plan registry initialized", "plans", len(planRegistry.List()))

	// Notifications (log-backed)
	notifier := notify.NewLogNotifier(logger)

	// Create services
	validator := serviceDrive.NewResourceValidator(folderRepo, fileRepo)
	access := serviceDrive.NewAccessResolver()
	folderService := serviceDrive.NewFolderService(folderRepo, fileRepo, usageRepo, store, txManager, validator, access, notifier, logger)
	fileService := serviceDrive.NewFileService(fileRepo, folderRepo, usageRepo, store, assessor, planRegistry, txManager, validator, access, notifier, logger)
	treeService := serviceDrive.NewTreeService(folderRepo, fileRepo, access, logger)
	searchService := serviceDrive.NewSearchService(folderRepo, fileRepo, access, logger)
	maintenanceService := serviceDrive.NewMaintenanceService(folderRepo, fileRepo, usageRepo, txManager, access, logger)
	usageService := serviceDrive.NewUsageService(usageRepo, planRegistry, logger)

	// Create handlers
	folderHandler := handler.NewFolderHandler(folderService, logger)
	fileHandler := handler.NewFileHandler(fileService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)
	searchHandler := handler.NewSearchHandler(searchService, logger)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceService, logger)
	usageHandler := handler.NewUsageHandler(usageService, planRegistry, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", treeHandler.HealthCheck)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders", folderHandler.ListChildren) // root level
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("GET /api/folders/{id}/children", folderHandler.ListChildren)
	mux.HandleFunc("POST /api/folders/{id}/move", folderHandler.MoveFolder)
	mux.HandleFunc("POST /api/folders/{id}/copy", folderHandler.CopyFolder)
	mux.HandleFunc("POST /api/folders/{id}/restore", folderHandler.RestoreFolder)
	mux.HandleFunc("POST /api/folders/{id}/share", folderHandler.ShareFolder)
	mux.HandleFunc("DELETE /api/folders/{id}/share/{granteeID}", folderHandler.UnshareFolder)
	mux.HandleFunc("GET /api/folders/{id}/breadcrumbs", treeHandler.GetBreadcrumbs)
	mux.HandleFunc("GET /api/folders/{id}/size", maintenanceHandler.FolderSize)
	mux.HandleFunc("GET /api/folders/{id}/consistency", maintenanceHandler.CheckConsistency)
	mux.HandleFunc("POST /api/folders/{id}/repair", maintenanceHandler.RepairCounts)

	// File routes
	mux.HandleFunc("POST /api/files", fileHandler.CreateFile)
	mux.HandleFunc("GET /api/files/{id}", fileHandler.GetFile)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteFile)
	mux.HandleFunc("POST /api/files/{id}/complete", fileHandler.CompleteUpload)
	mux.HandleFunc("POST /api/files/{id}/rename", fileHandler.RenameFile)
	mux.HandleFunc("POST /api/files/{id}/move", fileHandler.MoveFile)
	mux.HandleFunc("POST /api/files/{id}/copy", fileHandler.CopyFile)
	mux.HandleFunc("POST /api/files/{id}/share", fileHandler.ShareFile)
	mux.HandleFunc("DELETE /api/files/{id}/share/{granteeID}", fileHandler.UnshareFile)
	mux.HandleFunc("POST /api/files/{id}/quarantine", fileHandler.Quarantine)
	mux.HandleFunc("POST /api/files/{id}/unquarantine", fileHandler.Restore)
	mux.HandleFunc("POST /api/files/{id}/content", fileHandler.ReplaceContent)
	mux.HandleFunc("GET /api/files/{id}/versions", fileHandler.ListVersions)
	mux.HandleFunc("POST /api/files/{id}/versions/{version}/restore", fileHandler.RestoreVersion)
	mux.HandleFunc("GET /api/files/{id}/download", fileHandler.DownloadURL)

	// Tree and search
	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)
	mux.HandleFunc("GET /api/search", searchHandler.Search)

	// Trash
	mux.HandleFunc("GET /api/trash/folders", folderHandler.ListTrash)

	// Usage and plans
	mux.HandleFunc("GET /api/usage", usageHandler.GetUsage)
	mux.HandleFunc("PUT /api/usage/plan", usageHandler.SetPlan)
	mux.HandleFunc("GET /api/plans", usageHandler.ListPlans)

	// Maintenance
	mux.HandleFunc("POST /api/maintenance/repair", maintenanceHandler.Repair)
	mux.HandleFunc("POST /api/maintenance/usage/recompute", maintenanceHandler.RecomputeUsage)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
