package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"skyvault/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Folders      string
	Files        string
	FileVersions string
	Usage        string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Folders:      fmt.Sprintf("%sfolders", prefix),
		Files:        fmt.Sprintf("%sfiles", prefix),
		FileVersions: fmt.Sprintf("%sfile_versions", prefix),
		Usage:        fmt.Sprintf("%susage", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// When the connection string points at a transaction pooler (PgBouncer on
// port 6543), prepared statements are not supported; auto-switch to
// QueryExecModeCacheDescribe, which uses the extended protocol without
// creating named prepared statements. An explicit
// ?default_query_exec_mode=... in the connection string takes precedence.
//
// Dynamic table prefixes (dev_, test_, prod_) are interpolated into SQL
// before statements reach the database, so each environment gets its own
// statement cache entries.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction;
// otherwise the pool. Repositories automatically participate in transactions
// this way.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
