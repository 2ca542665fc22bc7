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

const fileColumns = `id, owner_id, folder_id, name, original_name, size, mime_type,
		status, current_version, storage, risk, shared_with, download_count,
		last_download_at, quarantined_at, restored_at, deleted_at, created_at, updated_at`

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *postgres.RepositoryConfig) driveRepo.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new file record
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	storage, risk, grants, err := marshalFileJSON(file)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, folder_id, name, original_name, size, mime_type,
			status, current_version, storage, risk, shared_with, download_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb, $12::jsonb, $13, $14, $15)
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		file.ID,
		file.OwnerID,
		file.FolderID,
		file.Name,
		file.OriginalName,
		file.Size,
		file.MimeType,
		file.Status,
		file.CurrentVersion,
		storage,
		risk,
		grants,
		file.DownloadCount,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists in this location", file.Name),
				ResourceType: "file",
			}
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a file by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	return r.scanOne(executor.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves a file with a row lock held until the
// surrounding transaction completes
func (r *PostgresFileRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	return r.scanOne(executor.QueryRow(ctx, query, id), id)
}

// Update writes the file's mutable fields
func (r *PostgresFileRepository) Update(ctx context.Context, file *models.File) error {
	storage, risk, grants, err := marshalFileJSON(file)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, name = $2, size = $3, mime_type = $4, status = $5,
			current_version = $6, storage = $7::jsonb, risk = $8::jsonb,
			shared_with = $9::jsonb, last_download_at = $10, quarantined_at = $11,
			restored_at = $12, deleted_at = $13, updated_at = $14
		WHERE id = $15
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		file.FolderID,
		file.Name,
		file.Size,
		file.MimeType,
		file.Status,
		file.CurrentVersion,
		storage,
		risk,
		grants,
		file.LastDownloadAt,
		file.QuarantinedAt,
		file.RestoredAt,
		file.DeletedAt,
		file.UpdatedAt,
		file.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete permanently removes the file row and its version history
func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	versionsQuery := fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1`, r.tables.FileVersions)
	if _, err := executor.Exec(ctx, versionsQuery, id); err != nil {
		return fmt.Errorf("delete file versions: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	// Zero rows affected is fine: permanent deletion is idempotent
	return nil
}

// ListByFolder lists files in a folder. Top-level NULL folders scope the set
// by owner, mirroring folder sibling listing.
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, folderID *string, ownerID string, includeDeleted bool) ([]models.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE `, fileColumns, r.tables.Files)

	var args []interface{}
	if folderID == nil {
		query += "folder_id IS NULL AND owner_id = $1"
		args = append(args, ownerID)
	} else {
		query += "folder_id = $1"
		args = append(args, *folderID)
	}
	if !includeDeleted {
		query += " AND status <> 'deleted'"
	}
	query += " ORDER BY name ASC"

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files by folder: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// AppendVersion appends one immutable history entry
func (r *PostgresFileRepository) AppendVersion(ctx context.Context, fileID string, version *models.FileVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, version, storage_key, size, mime_type, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.FileVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		fileID,
		version.Version,
		version.StorageKey,
		version.Size,
		version.MimeType,
		version.UploadedBy,
		version.UploadedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			// History entries are immutable once appended
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %d already recorded for file %s", version.Version, fileID),
				ResourceType: "file_version",
				ResourceID:   fileID,
			}
		}
		return fmt.Errorf("append file version: %w", err)
	}

	return nil
}

// ListVersions returns the file's history ordered by version ascending
func (r *PostgresFileRepository) ListVersions(ctx context.Context, fileID string) ([]models.FileVersion, error) {
	query := fmt.Sprintf(`
		SELECT version, storage_key, size, mime_type, uploaded_by, uploaded_at
		FROM %s
		WHERE file_id = $1
		ORDER BY version ASC
	`, r.tables.FileVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("list file versions: %w", err)
	}
	defer rows.Close()

	var versions []models.FileVersion
	for rows.Next() {
		var v models.FileVersion
		if err := rows.Scan(&v.Version, &v.StorageKey, &v.Size, &v.MimeType, &v.UploadedBy, &v.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan file version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetVersion returns one history entry
func (r *PostgresFileRepository) GetVersion(ctx context.Context, fileID string, version int) (*models.FileVersion, error) {
	query := fmt.Sprintf(`
		SELECT version, storage_key, size, mime_type, uploaded_by, uploaded_at
		FROM %s
		WHERE file_id = $1 AND version = $2
	`, r.tables.FileVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	var v models.FileVersion
	err := executor.QueryRow(ctx, query, fileID, version).Scan(
		&v.Version, &v.StorageKey, &v.Size, &v.MimeType, &v.UploadedBy, &v.UploadedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("version %d of file %s: %w", version, fileID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file version: %w", err)
	}
	return &v, nil
}

// RecordDownload atomically bumps the download counter
func (r *PostgresFileRepository) RecordDownload(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET download_count = download_count + 1, last_download_at = now()
		WHERE id = $1
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Search returns live files visible to the caller whose name matches
func (r *PostgresFileRepository) Search(ctx context.Context, callerID, query string) ([]models.File, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status <> 'deleted'
		  AND (owner_id = $1 OR shared_with @> jsonb_build_array(jsonb_build_object('user_id', $1::text)))
		  AND name ILIKE '%%' || $2 || '%%'
		ORDER BY name ASC
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, sql, callerID, query)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// SearchInFolders returns live files in the given folders whose name matches
func (r *PostgresFileRepository) SearchInFolders(ctx context.Context, folderIDs []string, query string) ([]models.File, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status <> 'deleted'
		  AND folder_id = ANY($1)
		  AND name ILIKE '%%' || $2 || '%%'
		ORDER BY name ASC
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, sql, folderIDs, query)
	if err != nil {
		return nil, fmt.Errorf("search files in folders: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *PostgresFileRepository) scanOne(row pgx.Row, id string) (*models.File, error) {
	file, err := scanFile(row)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

func (r *PostgresFileRepository) scanAll(rows pgx.Rows) ([]models.File, error) {
	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// scanFile reads one file row, decoding the jsonb columns
func scanFile(row pgx.Row) (*models.File, error) {
	var (
		file    models.File
		storage []byte
		risk    []byte
		grants  []byte
	)
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.FolderID,
		&file.Name,
		&file.OriginalName,
		&file.Size,
		&file.MimeType,
		&file.Status,
		&file.CurrentVersion,
		&storage,
		&risk,
		&grants,
		&file.DownloadCount,
		&file.LastDownloadAt,
		&file.QuarantinedAt,
		&file.RestoredAt,
		&file.DeletedAt,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(storage) > 0 {
		if err := json.Unmarshal(storage, &file.Storage); err != nil {
			return nil, fmt.Errorf("decode file storage locator: %w", err)
		}
	}
	if len(risk) > 0 {
		if err := json.Unmarshal(risk, &file.Risk); err != nil {
			return nil, fmt.Errorf("decode file risk assessment: %w", err)
		}
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &file.SharedWith); err != nil {
			return nil, fmt.Errorf("decode file grants: %w", err)
		}
	}

	file.FolderID = models.NormalizeParentID(file.FolderID)
	return &file, nil
}

func marshalFileJSON(file *models.File) (storage, risk, grants string, err error) {
	s, err := json.Marshal(file.Storage)
	if err != nil {
		return "", "", "", fmt.Errorf("encode file storage locator: %w", err)
	}
	riskJSON := "null"
	if file.Risk != nil {
		rj, err := json.Marshal(file.Risk)
		if err != nil {
			return "", "", "", fmt.Errorf("encode file risk assessment: %w", err)
		}
		riskJSON = string(rj)
	}
	g, err := json.Marshal(orEmptyGrants(file.SharedWith))
	if err != nil {
		return "", "", "", fmt.Errorf("encode file grants: %w", err)
	}
	return string(s), riskJSON, string(g), nil
}
