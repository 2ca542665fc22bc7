package drive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	models "skyvault/internal/domain/models/drive"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/repository/postgres"
)

// PostgresUsageRepository implements the UsageRepository interface
type PostgresUsageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(config *postgres.RepositoryConfig) driveRepo.UsageRepository {
	return &PostgresUsageRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get retrieves an owner's usage record, creating a default row on first touch
func (r *PostgresUsageRepository) Get(ctx context.Context, ownerID string) (*models.Usage, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, storage_used, plan, updated_at)
		VALUES ($1, 0, 'free', now())
		ON CONFLICT (owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		RETURNING owner_id, storage_used, plan, updated_at
	`, r.tables.Usage)

	executor := postgres.GetExecutor(ctx, r.pool)
	var usage models.Usage
	err := executor.QueryRow(ctx, query, ownerID).Scan(
		&usage.OwnerID,
		&usage.StorageUsed,
		&usage.Plan,
		&usage.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return &usage, nil
}

// Add atomically applies a delta to the owner's storage-used counter.
// The increment happens in the database; concurrent uploads and deletes
// never race through an application-level read-modify-write.
func (r *PostgresUsageRepository) Add(ctx context.Context, ownerID string, delta int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, storage_used, plan, updated_at)
		VALUES ($1, GREATEST($2, 0), 'free', now())
		ON CONFLICT (owner_id) DO UPDATE
		SET storage_used = GREATEST(%s.storage_used + $2, 0), updated_at = now()
	`, r.tables.Usage, r.tables.Usage)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ownerID, delta); err != nil {
		return fmt.Errorf("adjust usage: %w", err)
	}
	return nil
}

// SetPlan sets the owner's quota plan
func (r *PostgresUsageRepository) SetPlan(ctx context.Context, ownerID, plan string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, storage_used, plan, updated_at)
		VALUES ($1, 0, $2, now())
		ON CONFLICT (owner_id) DO UPDATE SET plan = $2, updated_at = now()
	`, r.tables.Usage)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ownerID, plan); err != nil {
		return fmt.Errorf("set usage plan: %w", err)
	}
	return nil
}

// Recompute rebuilds storage used from file rows, stores the result and
// returns it. Files in trash (status deleted) keep counting until permanent
// deletion removes the row, so the sum is over every remaining row.
func (r *PostgresUsageRepository) Recompute(ctx context.Context, ownerID string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET storage_used = COALESCE((
			SELECT SUM(size) FROM %s
			WHERE owner_id = $1
		), 0), updated_at = now()
		WHERE owner_id = $1
		RETURNING storage_used
	`, r.tables.Usage, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	var used int64
	err := executor.QueryRow(ctx, query, ownerID).Scan(&used)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			// No usage row yet; create it and retry once
			if _, err := r.Get(ctx, ownerID); err != nil {
				return 0, err
			}
			return r.Recompute(ctx, ownerID)
		}
		return 0, fmt.Errorf("recompute usage: %w", err)
	}
	return used, nil
}
