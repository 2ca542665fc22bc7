package drive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/repository/postgres"
)

const folderColumns = `id, owner_id, parent_id, name, path, description, color, icon, tags,
		file_count, folder_count, total_size, is_trash, is_archive, is_default,
		shared_with, created_at, updated_at, trashed_at`

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *postgres.RepositoryConfig) driveRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	tags, grants, err := marshalFolderJSON(folder)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, parent_id, name, path, description, color, icon, tags,
			file_count, folder_count, total_size, is_trash, is_archive, is_default,
			shared_with, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14, $15, $16::jsonb, $17, $18)
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.ParentID,
		folder.Name,
		folder.Path,
		folder.Description,
		folder.Color,
		folder.Icon,
		tags,
		folder.FileCount,
		folder.FolderCount,
		folder.TotalSize,
		folder.IsTrash,
		folder.IsArchive,
		folder.IsDefault,
		grants,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
			}
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	return r.scanOne(executor.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves a folder with a row lock held until the
// surrounding transaction completes
func (r *PostgresFolderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	return r.scanOne(executor.QueryRow(ctx, query, id), id)
}

// Update writes the folder's mutable fields
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	tags, grants, err := marshalFolderJSON(folder)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, path = $3, description = $4, color = $5,
			icon = $6, tags = $7::jsonb, is_trash = $8, is_archive = $9, is_default = $10,
			shared_with = $11::jsonb, updated_at = $12, trashed_at = $13
		WHERE id = $14
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.Path,
		folder.Description,
		folder.Color,
		folder.Icon,
		tags,
		folder.IsTrash,
		folder.IsArchive,
		folder.IsDefault,
		grants,
		folder.UpdatedAt,
		folder.TrashedAt,
		folder.ID,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
				ResourceID:   folder.ID,
			}
		}
		return fmt.Errorf("update folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdatePath rewrites only the materialized path
func (r *PostgresFolderRepository) UpdatePath(ctx context.Context, id, path string) error {
	query := fmt.Sprintf(`UPDATE %s SET path = $1, updated_at = now() WHERE id = $2`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, path, id)
	if err != nil {
		return fmt.Errorf("update folder path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetTrash flips the trash flag and deletion timestamp
func (r *PostgresFolderRepository) SetTrash(ctx context.Context, id string, trashed bool) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_trash = $1,
			trashed_at = CASE WHEN $1 THEN now() ELSE NULL END,
			updated_at = now()
		WHERE id = $2
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, trashed, id)
	if err != nil {
		return fmt.Errorf("set folder trash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete permanently removes the folder row
func (r *PostgresFolderRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	// Zero rows affected is fine: permanent deletion is idempotent
	return nil
}

// ListChildren lists immediate child folders. Root-level NULL parents bypass
// unique constraints and foreign keys, so the sibling set there is scoped by
// owner instead.
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID *string, ownerID string, includeTrashed bool) ([]models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE `, folderColumns, r.tables.Folders)

	var args []interface{}
	if parentID == nil {
		query += "parent_id IS NULL AND owner_id = $1"
		args = append(args, ownerID)
	} else {
		query += "parent_id = $1"
		args = append(args, *parentID)
	}
	if !includeTrashed {
		query += " AND NOT is_trash"
	}
	query += " ORDER BY name ASC"

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// AdjustCounts atomically applies deltas to the folder's child aggregates.
// The update happens in the database, never read-modify-write here.
func (r *PostgresFolderRepository) AdjustCounts(ctx context.Context, id string, folderDelta, fileDelta, sizeDelta int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_count = GREATEST(folder_count + $1, 0),
			file_count = GREATEST(file_count + $2, 0),
			total_size = GREATEST(total_size + $3, 0),
			updated_at = now()
		WHERE id = $4
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, folderDelta, fileDelta, sizeDelta, id)
	if err != nil {
		return fmt.Errorf("adjust folder counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetCounts overwrites the folder's child aggregates with recomputed values
func (r *PostgresFolderRepository) SetCounts(ctx context.Context, id string, folderCount, fileCount, totalSize int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_count = $1,
			file_count = $2,
			total_size = $3,
			updated_at = now()
		WHERE id = $4
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, folderCount, fileCount, totalSize, id)
	if err != nil {
		return fmt.Errorf("set folder counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListAllByOwner retrieves all folders owned by a user (flat list)
func (r *PostgresFolderRepository) ListAllByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1
		ORDER BY path ASC, name ASC
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders by owner: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Search returns non-trashed folders visible to the caller whose name,
// description or tags match the query
func (r *PostgresFolderRepository) Search(ctx context.Context, callerID, query string) ([]models.Folder, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE NOT is_trash
		  AND (owner_id = $1 OR shared_with @> jsonb_build_array(jsonb_build_object('user_id', $1::text)))
		  AND (name ILIKE '%%' || $2 || '%%'
			OR description ILIKE '%%' || $2 || '%%'
			OR tags::text ILIKE '%%' || $2 || '%%')
		ORDER BY name ASC
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, sql, callerID, query)
	if err != nil {
		return nil, fmt.Errorf("search folders: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *PostgresFolderRepository) scanOne(row pgx.Row, id string) (*models.Folder, error) {
	folder, err := scanFolder(row)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

func (r *PostgresFolderRepository) scanAll(rows pgx.Rows) ([]models.Folder, error) {
	var folders []models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	return folders, rows.Err()
}

// scanFolder reads one folder row, decoding the jsonb columns
func scanFolder(row pgx.Row) (*models.Folder, error) {
	var (
		folder models.Folder
		tags   []byte
		grants []byte
	)
	err := row.Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.Path,
		&folder.Description,
		&folder.Color,
		&folder.Icon,
		&tags,
		&folder.FileCount,
		&folder.FolderCount,
		&folder.TotalSize,
		&folder.IsTrash,
		&folder.IsArchive,
		&folder.IsDefault,
		&grants,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.TrashedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &folder.Tags); err != nil {
			return nil, fmt.Errorf("decode folder tags: %w", err)
		}
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &folder.SharedWith); err != nil {
			return nil, fmt.Errorf("decode folder grants: %w", err)
		}
	}

	folder.ParentID = models.NormalizeParentID(folder.ParentID)
	return &folder, nil
}

func marshalFolderJSON(folder *models.Folder) (tags string, grants string, err error) {
	t, err := json.Marshal(orEmptyStrings(folder.Tags))
	if err != nil {
		return "", "", fmt.Errorf("encode folder tags: %w", err)
	}
	g, err := json.Marshal(orEmptyGrants(folder.SharedWith))
	if err != nil {
		return "", "", fmt.Errorf("encode folder grants: %w", err)
	}
	return string(t), string(g), nil
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyGrants(g []models.Grant) []models.Grant {
	if g == nil {
		return []models.Grant{}
	}
	return g
}
