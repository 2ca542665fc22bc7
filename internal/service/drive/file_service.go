package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"skyvault/internal/config"
	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/domain/repositories"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/domain/services"
	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/notify"
	"skyvault/internal/plans"
	"skyvault/internal/scanner"
	"skyvault/internal/storage"
)

type fileService struct {
	fileRepo   driveRepo.FileRepository
	folderRepo driveRepo.FolderRepository
	usageRepo  driveRepo.UsageRepository
	store      storage.ObjectStore
	assessor   scanner.RiskAssessor
	plans      *plans.Registry
	txManager  repositories.TransactionManager
	validator  *ResourceValidator
	access     services.AccessResolver
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewFileService creates the file lifecycle manager
func NewFileService(
	fileRepo driveRepo.FileRepository,
	folderRepo driveRepo.FolderRepository,
	usageRepo driveRepo.UsageRepository,
	store storage.ObjectStore,
	assessor scanner.RiskAssessor,
	planRegistry *plans.Registry,
	txManager repositories.TransactionManager,
	validator *ResourceValidator,
	access services.AccessResolver,
	notifier notify.Notifier,
	logger *slog.Logger,
) driveSvc.FileService {
	return &fileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		usageRepo:  usageRepo,
		store:      store,
		assessor:   assessor,
		plans:      planRegistry,
		txManager:  txManager,
		validator:  validator,
		access:     access,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateFile reserves an uploading record. Quota is reserved here so two
// concurrent uploads cannot both pass the check and jointly overshoot.
func (s *fileService) CreateFile(ctx context.Context, req *driveSvc.CreateFileRequest) (*models.File, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		return nil, &domain.ValidationError{Message: "size must be positive"}
	}
	if req.Size > config.MaxFileSize {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("size exceeds the %d byte upload limit", config.MaxFileSize)}
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	folder, err := s.validator.ResolveParent(ctx, req.FolderID)
	if err != nil {
		return nil, err
	}
	if folder != nil {
		if err := s.access.Require(folder, req.Principal, models.PermissionEdit); err != nil {
			return nil, err
		}
	}

	ownerID := req.Principal.UserID
	usage, err := s.usageRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	quota := s.plans.QuotaFor(usage.Plan)
	if usage.StorageUsed+req.Size > quota {
		return nil, &domain.QuotaExceededError{
			Message: fmt.Sprintf("upload of %d bytes exceeds the %d byte quota (%d used)", req.Size, quota, usage.StorageUsed),
		}
	}

	now := time.Now()
	file := &models.File{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Name:           req.Name,
		OriginalName:   req.Name,
		Size:           req.Size,
		MimeType:       mimeType,
		Status:         models.StatusUploading,
		CurrentVersion: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if folder != nil {
		file.FolderID = &folder.ID
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.validator.EnsureFileName(ctx, file.FolderID, ownerID, file.Name, ""); err != nil {
			return err
		}
		if err := s.fileRepo.Create(ctx, file); err != nil {
			return err
		}
		if folder != nil {
			if err := s.folderRepo.AdjustCounts(ctx, folder.ID, 0, 1, file.Size); err != nil {
				return err
			}
		}
		return s.usageRepo.Add(ctx, ownerID, file.Size)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file upload started", "file_id", file.ID, "owner_id", ownerID, "size", file.Size)
	return file, nil
}

// CompleteUpload runs the risk assessment and activates or quarantines the
// file. Any failure after the provisional record exists discards the record
// instead of leaving it uploading forever.
func (s *fileService) CompleteUpload(ctx context.Context, p models.Principal, fileID string, res *driveSvc.UploadResult) (*models.File, error) {
	var file *models.File

	// Mark processing and attach the locator before the scan so a crash
	// mid-scan is distinguishable from an interrupted transfer
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		f, err := s.fileRepo.GetByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if err := s.access.Require(f, p, models.PermissionEdit); err != nil {
			return err
		}
		if f.Status != models.StatusUploading {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("file is %s, expected uploading", f.Status),
				ResourceType: "file",
				ResourceID:   f.ID,
			}
		}

		sizeDelta := res.Size - f.Size
		if err := s.checkQuotaDelta(ctx, f.OwnerID, sizeDelta); err != nil {
			return err
		}
		f.Status = models.StatusProcessing
		f.Storage = res.Locator
		f.Size = res.Size
		if res.MimeType != "" {
			f.MimeType = res.MimeType
		}
		f.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, f); err != nil {
			return err
		}
		if sizeDelta != 0 {
			if f.FolderID != nil {
				if err := s.folderRepo.AdjustCounts(ctx, *f.FolderID, 0, 0, sizeDelta); err != nil {
					return err
				}
			}
			if err := s.usageRepo.Add(ctx, f.OwnerID, sizeDelta); err != nil {
				return err
			}
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	risk := s.assess(ctx, file)
	if risk.HighRisk() {
		return s.quarantineUpload(ctx, file, risk)
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file.Status = models.StatusActive
		file.Risk = risk
		file.UpdatedAt = time.Now()
		return s.fileRepo.Update(ctx, file)
	})
	if err != nil {
		s.discardProvisional(ctx, file)
		return nil, err
	}

	s.logger.Info("file activated", "file_id", file.ID, "risk_score", risk.Score)
	return file, nil
}

// assess consults the risk collaborator under a bounded timeout. A failure
// or timeout yields the most conservative verdict, never a clean one.
func (s *fileService) assess(ctx context.Context, file *models.File) *models.RiskAssessment {
	scanCtx, cancel := context.WithTimeout(ctx, config.ScanTimeout)
	defer cancel()

	risk, err := s.assessor.Assess(scanCtx, file.Storage, scanner.FileInfo{
		Name:     file.Name,
		Size:     file.Size,
		MimeType: file.MimeType,
		OwnerID:  file.OwnerID,
	})
	if err != nil {
		s.logger.Warn("risk assessment unavailable, treating as high risk",
			"file_id", file.ID, "error", err)
		return &models.RiskAssessment{Score: 100, Level: "high", AssessedAt: time.Now()}
	}
	return risk
}

// quarantineUpload routes a freshly uploaded high-risk file into quarantine.
// If even the relocation fails the provisional record is discarded entirely.
func (s *fileService) quarantineUpload(ctx context.Context, file *models.File, risk *models.RiskAssessment) (*models.File, error) {
	newLoc, err := s.store.Relocate(ctx, file.Storage, storage.AreaQuarantine)
	if err != nil {
		s.logger.Error("quarantine relocation failed, discarding upload", "file_id", file.ID, "error", err)
		s.discardProvisional(ctx, file)
		return nil, &domain.StorageBackendError{
			Message: fmt.Sprintf("quarantine upload %s: %v", file.ID, err),
		}
	}

	now := time.Now()
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file.Status = models.StatusQuarantined
		file.Storage = newLoc
		file.Risk = risk
		file.QuarantinedAt = &now
		file.UpdatedAt = now
		return s.fileRepo.Update(ctx, file)
	})
	if err != nil {
		s.discardProvisional(ctx, file)
		return nil, err
	}

	s.logger.Warn("file quarantined on upload",
		"file_id", file.ID, "risk_score", risk.Score, "malicious", risk.Malicious)
	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventFileQuarantined,
		RecipientID: file.OwnerID,
		Detail:      map[string]string{"file_id": file.ID, "name": file.Name, "risk_level": risk.Level},
	})
	return file, nil
}

// discardProvisional removes a record that never reached a settled state,
// returning its counter reservations. Best effort: failures are logged, not
// surfaced, because the caller is already on an error path.
func (s *fileService) discardProvisional(ctx context.Context, file *models.File) {
	if file.Storage.Key != "" {
		if err := s.store.Delete(ctx, file.Storage); err != nil {
			s.logger.Warn("discard: stored object not deleted", "file_id", file.ID, "error", err)
		}
	}
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
			return err
		}
		if file.FolderID != nil {
			if err := s.folderRepo.AdjustCounts(ctx, *file.FolderID, 0, -1, -file.Size); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		return s.usageRepo.Add(ctx, file.OwnerID, -file.Size)
	})
	if err != nil {
		s.logger.Error("discard of provisional file failed", "file_id", file.ID, "error", err)
	}
}

// GetFile retrieves a file the principal can at least view
func (s *fileService) GetFile(ctx context.Context, p models.Principal, id string) (*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(file, p, models.PermissionView); err != nil {
		return nil, err
	}
	return file, nil
}

// RenameFile renames a file after re-checking sibling uniqueness
func (s *fileService) RenameFile(ctx context.Context, p models.Principal, id, newName string) (*models.File, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}

	var renamed *models.File
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(file, p, models.PermissionEdit); err != nil {
			return err
		}
		if !file.Live() {
			return &domain.NotFoundError{Message: fmt.Sprintf("file %s is deleted", id)}
		}
		if file.Name == newName {
			renamed = file
			return nil
		}
		if err := s.validator.EnsureFileName(ctx, file.FolderID, file.OwnerID, newName, file.ID); err != nil {
			return err
		}
		file.Name = newName
		file.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		renamed = file
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// MoveFile re-homes a file into another folder, keeping both folders' counts
// in step
func (s *fileService) MoveFile(ctx context.Context, p models.Principal, id string, newFolderID *string) (*models.File, error) {
	newFolderID = models.NormalizeParentID(newFolderID)
	var moved *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(file, p, models.PermissionEdit); err != nil {
			return err
		}
		if !file.Live() {
			return &domain.NotFoundError{Message: fmt.Sprintf("file %s is deleted", id)}
		}
		if sameParent(file.FolderID, newFolderID) {
			moved = file
			return nil
		}

		dest, err := s.validator.ResolveParent(ctx, newFolderID)
		if err != nil {
			return err
		}
		if dest != nil {
			if err := s.access.Require(dest, p, models.PermissionEdit); err != nil {
				return err
			}
		}
		if err := s.validator.EnsureFileName(ctx, newFolderID, file.OwnerID, file.Name, file.ID); err != nil {
			return err
		}

		oldFolderID := file.FolderID
		file.FolderID = newFolderID
		file.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		if oldFolderID != nil {
			if err := s.folderRepo.AdjustCounts(ctx, *oldFolderID, 0, -1, -file.Size); err != nil {
				return err
			}
		}
		if dest != nil {
			if err := s.folderRepo.AdjustCounts(ctx, dest.ID, 0, 1, file.Size); err != nil {
				return err
			}
		}
		moved = file
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// DeleteFile soft-deletes into trash or permanently destroys the file
func (s *fileService) DeleteFile(ctx context.Context, p models.Principal, id string, permanent bool) error {
	if permanent {
		return s.deleteFilePermanent(ctx, p, id)
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(file, p, models.PermissionEdit); err != nil {
			return err
		}
		switch file.Status {
		case models.StatusDeleted:
			return nil
		case models.StatusActive, models.StatusQuarantined:
		default:
			return &domain.ConflictError{
				Message:      fmt.Sprintf("file is still %s", file.Status),
				ResourceType: "file",
				ResourceID:   file.ID,
			}
		}

		now := time.Now()
		file.Status = models.StatusDeleted
		file.DeletedAt = &now
		file.UpdatedAt = now
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		// Leaves the live aggregate set; quota keeps counting until purge
		if file.FolderID != nil {
			return s.folderRepo.AdjustCounts(ctx, *file.FolderID, 0, -1, -file.Size)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("file trashed", "file_id", id, "actor", p.UserID)
	return nil
}

// deleteFilePermanent destroys the stored objects of every version, then the
// row and its history, then returns the quota. Idempotent.
func (s *fileService) deleteFilePermanent(ctx context.Context, p models.Principal, id string) error {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil // already gone
		}
		return err
	}
	if err := s.access.Require(file, p, models.PermissionManage); err != nil {
		return err
	}

	versions, err := s.fileRepo.ListVersions(ctx, id)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.StorageKey == "" || v.StorageKey == file.Storage.Key {
			continue
		}
		loc := file.Storage
		loc.Key = v.StorageKey
		if err := s.store.Delete(ctx, loc); err != nil {
			return &domain.StorageBackendError{
				Message: fmt.Sprintf("delete version %d of file %s: %v", v.Version, id, err),
			}
		}
	}
	if file.Storage.Key != "" {
		if err := s.store.Delete(ctx, file.Storage); err != nil {
			return &domain.StorageBackendError{
				Message: fmt.Sprintf("delete stored object for file %s: %v", id, err),
			}
		}
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.fileRepo.Delete(ctx, id); err != nil {
			return err
		}
		if file.FolderID != nil && file.Live() {
			if err := s.folderRepo.AdjustCounts(ctx, *file.FolderID, 0, -1, -file.Size); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		return s.usageRepo.Add(ctx, file.OwnerID, -file.Size)
	})
	if err != nil {
		return err
	}

	s.logger.Info("file permanently deleted", "file_id", id, "actor", p.UserID)
	return nil
}

// ShareFile upserts a grant on the file
func (s *fileService) ShareFile(ctx context.Context, p models.Principal, id string, req *driveSvc.ShareRequest) (*models.File, error) {
	var shared *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := upsertGrant(file, &file.SharedWith, p, req, s.access); err != nil {
			return err
		}
		file.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		shared = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventShareGranted,
		RecipientID: req.GranteeID,
		ActorID:     p.UserID,
		Detail:      map[string]string{"file_id": id, "permission": string(req.Permission)},
	})
	return shared, nil
}

// UnshareFile removes a grantee's entry
func (s *fileService) UnshareFile(ctx context.Context, p models.Principal, id, granteeID string) (*models.File, error) {
	var unshared *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := removeGrant(file, &file.SharedWith, p, granteeID, s.access); err != nil {
			return err
		}
		file.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		unshared = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventShareRevoked,
		RecipientID: granteeID,
		ActorID:     p.UserID,
		Detail:      map[string]string{"file_id": id},
	})
	return unshared, nil
}

// CopyFile duplicates metadata and content reference into a new folder. The
// copy is owned by the caller, starts history at version 1 and carries no
// grants.
func (s *fileService) CopyFile(ctx context.Context, p models.Principal, id string, newFolderID *string) (*models.File, error) {
	source, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(source, p, models.PermissionView); err != nil {
		return nil, err
	}
	if source.Status != models.StatusActive {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("only active files can be copied, file is %s", source.Status),
			ResourceType: "file",
			ResourceID:   source.ID,
		}
	}

	newFolderID = models.NormalizeParentID(newFolderID)
	dest, err := s.validator.ResolveParent(ctx, newFolderID)
	if err != nil {
		return nil, err
	}
	if dest != nil {
		if err := s.access.Require(dest, p, models.PermissionEdit); err != nil {
			return nil, err
		}
	}

	ownerID := p.UserID
	usage, err := s.usageRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if quota := s.plans.QuotaFor(usage.Plan); usage.StorageUsed+source.Size > quota {
		return nil, &domain.QuotaExceededError{
			Message: fmt.Sprintf("copy of %d bytes exceeds the %d byte quota (%d used)", source.Size, quota, usage.StorageUsed),
		}
	}

	now := time.Now()
	clone := &models.File{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		FolderID:       newFolderID,
		Name:           source.Name,
		OriginalName:   source.OriginalName,
		Size:           source.Size,
		MimeType:       source.MimeType,
		Status:         models.StatusActive,
		CurrentVersion: 1,
		Storage:        source.Storage,
		Risk:           source.Risk,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.validator.EnsureFileName(ctx, newFolderID, ownerID, clone.Name, ""); err != nil {
			return err
		}
		if err := s.fileRepo.Create(ctx, clone); err != nil {
			return err
		}
		if dest != nil {
			if err := s.folderRepo.AdjustCounts(ctx, dest.ID, 0, 1, clone.Size); err != nil {
				return err
			}
		}
		return s.usageRepo.Add(ctx, ownerID, clone.Size)
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// Quarantine relocates the stored object into the quarantine area and only
// then flips status. A failed relocation surfaces as a storage error with
// status untouched, so the record never claims a containment that did not
// happen.
func (s *fileService) Quarantine(ctx context.Context, p models.Principal, id, reason string) (*models.File, error) {
	var file *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		f, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(f, p, models.PermissionManage); err != nil {
			return err
		}
		if f.Status == models.StatusQuarantined {
			file = f
			return nil
		}
		if f.Status != models.StatusActive {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("cannot quarantine a %s file", f.Status),
				ResourceType: "file",
				ResourceID:   f.ID,
			}
		}

		newLoc, err := s.store.Relocate(ctx, f.Storage, storage.AreaQuarantine)
		if err != nil {
			return &domain.StorageBackendError{
				Message: fmt.Sprintf("relocate file %s to quarantine: %v", f.ID, err),
			}
		}

		now := time.Now()
		f.Status = models.StatusQuarantined
		f.Storage = newLoc
		f.QuarantinedAt = &now
		f.UpdatedAt = now
		if err := s.fileRepo.Update(ctx, f); err != nil {
			// Move the object back so the persisted locator stays valid
			if _, backErr := s.store.Relocate(ctx, newLoc, storage.AreaActive); backErr != nil {
				s.logger.Error("quarantine rollback failed, object stranded in quarantine area",
					"file_id", f.ID, "key", newLoc.Key, "error", backErr)
			}
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("file quarantined", "file_id", id, "actor", p.UserID, "reason", reason)
	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventFileQuarantined,
		RecipientID: file.OwnerID,
		ActorID:     p.UserID,
		Detail:      map[string]string{"file_id": id, "name": file.Name, "reason": reason},
	})
	return file, nil
}

// Restore is the inverse of Quarantine with the same discipline: the object
// moves back to the active area first, status flips only afterwards
func (s *fileService) Restore(ctx context.Context, p models.Principal, id, reason string) (*models.File, error) {
	var file *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		f, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(f, p, models.PermissionManage); err != nil {
			return err
		}
		if f.Status == models.StatusActive {
			file = f
			return nil
		}
		if f.Status != models.StatusQuarantined {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("cannot restore a %s file", f.Status),
				ResourceType: "file",
				ResourceID:   f.ID,
			}
		}

		newLoc, err := s.store.Relocate(ctx, f.Storage, storage.AreaActive)
		if err != nil {
			return &domain.StorageBackendError{
				Message: fmt.Sprintf("relocate file %s out of quarantine: %v", f.ID, err),
			}
		}

		now := time.Now()
		f.Status = models.StatusActive
		f.Storage = newLoc
		f.RestoredAt = &now
		f.UpdatedAt = now
		if err := s.fileRepo.Update(ctx, f); err != nil {
			// Move the object back so the persisted locator stays valid
			if _, backErr := s.store.Relocate(ctx, newLoc, storage.AreaQuarantine); backErr != nil {
				s.logger.Error("restore rollback failed, object stranded in active area",
					"file_id", f.ID, "key", newLoc.Key, "error", backErr)
			}
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file restored from quarantine", "file_id", id, "actor", p.UserID, "reason", reason)
	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventFileRestored,
		RecipientID: file.OwnerID,
		ActorID:     p.UserID,
		Detail:      map[string]string{"file_id": id, "name": file.Name, "reason": reason},
	})
	return file, nil
}

// ReplaceContent applies new content over an existing file. The previous
// locator is pushed into history first, then the version increments.
func (s *fileService) ReplaceContent(ctx context.Context, p models.Principal, id string, res *driveSvc.UploadResult) (*models.File, error) {
	var replaced *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(file, p, models.PermissionEdit); err != nil {
			return err
		}
		if file.Status != models.StatusActive {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("cannot replace content of a %s file", file.Status),
				ResourceType: "file",
				ResourceID:   file.ID,
			}
		}
		if err := s.checkVersionCapacity(ctx, file); err != nil {
			return err
		}
		if err := s.checkQuotaDelta(ctx, file.OwnerID, res.Size-file.Size); err != nil {
			return err
		}

		if err := s.pushCurrentVersion(ctx, file, p); err != nil {
			return err
		}

		sizeDelta := res.Size - file.Size
		file.CurrentVersion++
		file.Storage = res.Locator
		file.Size = res.Size
		if res.MimeType != "" {
			file.MimeType = res.MimeType
		}
		file.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		if err := s.applySizeDelta(ctx, file, sizeDelta); err != nil {
			return err
		}
		replaced = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file content replaced", "file_id", id, "version", replaced.CurrentVersion)
	return replaced, nil
}

// RestoreVersion makes a historical version the active content. The current
// content is pushed into history first: restoring is itself a
// version-creating event, never a destructive rollback.
func (s *fileService) RestoreVersion(ctx context.Context, p models.Principal, id string, version int) (*models.File, error) {
	var restored *models.File

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(file, p, models.PermissionEdit); err != nil {
			return err
		}
		if file.Status != models.StatusActive {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("cannot restore a version of a %s file", file.Status),
				ResourceType: "file",
				ResourceID:   file.ID,
			}
		}
		if version == file.CurrentVersion {
			restored = file
			return nil
		}

		target, err := s.fileRepo.GetVersion(ctx, id, version)
		if err != nil {
			return err
		}
		if err := s.checkVersionCapacity(ctx, file); err != nil {
			return err
		}
		if err := s.checkQuotaDelta(ctx, file.OwnerID, target.Size-file.Size); err != nil {
			return err
		}

		if err := s.pushCurrentVersion(ctx, file, p); err != nil {
			return err
		}

		sizeDelta := target.Size - file.Size
		file.CurrentVersion++
		file.Storage.Key = target.StorageKey
		file.Size = target.Size
		file.MimeType = target.MimeType
		file.UpdatedAt = time.Now()
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return err
		}
		if err := s.applySizeDelta(ctx, file, sizeDelta); err != nil {
			return err
		}
		restored = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file version restored",
		"file_id", id, "restored_version", version, "current_version", restored.CurrentVersion)
	return restored, nil
}

// pushCurrentVersion appends the file's current content as a history entry
func (s *fileService) pushCurrentVersion(ctx context.Context, file *models.File, p models.Principal) error {
	return s.fileRepo.AppendVersion(ctx, file.ID, &models.FileVersion{
		Version:    file.CurrentVersion,
		StorageKey: file.Storage.Key,
		Size:       file.Size,
		MimeType:   file.MimeType,
		UploadedBy: p.UserID,
		UploadedAt: time.Now(),
	})
}

// checkVersionCapacity enforces the plan's history depth. History is
// append-only, so the bound refuses new versions instead of pruning old
// ones.
func (s *fileService) checkVersionCapacity(ctx context.Context, file *models.File) error {
	usage, err := s.usageRepo.Get(ctx, file.OwnerID)
	if err != nil {
		return err
	}
	plan, err := s.plans.Get(usage.Plan)
	if err != nil {
		plan, _ = s.plans.Get(plans.DefaultPlan)
	}
	if plan.MaxVersions <= 0 {
		return nil
	}

	versions, err := s.fileRepo.ListVersions(ctx, file.ID)
	if err != nil {
		return err
	}
	if len(versions) >= plan.MaxVersions {
		return &domain.QuotaExceededError{
			Message: fmt.Sprintf("version history limit of %d reached for plan %s", plan.MaxVersions, plan.ID),
		}
	}
	return nil
}

// checkQuotaDelta verifies a size increase still fits the owner's quota
func (s *fileService) checkQuotaDelta(ctx context.Context, ownerID string, delta int64) error {
	if delta <= 0 {
		return nil
	}
	usage, err := s.usageRepo.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if quota := s.plans.QuotaFor(usage.Plan); usage.StorageUsed+delta > quota {
		return &domain.QuotaExceededError{
			Message: fmt.Sprintf("change of %d bytes exceeds the %d byte quota (%d used)", delta, quota, usage.StorageUsed),
		}
	}
	return nil
}

// applySizeDelta keeps the folder aggregate and the usage counter in step
// with a content size change
func (s *fileService) applySizeDelta(ctx context.Context, file *models.File, delta int64) error {
	if delta == 0 {
		return nil
	}
	if file.FolderID != nil {
		if err := s.folderRepo.AdjustCounts(ctx, *file.FolderID, 0, 0, delta); err != nil {
			return err
		}
	}
	return s.usageRepo.Add(ctx, file.OwnerID, delta)
}

// ListVersions returns the append-only history, oldest first
func (s *fileService) ListVersions(ctx context.Context, p models.Principal, id string) ([]models.FileVersion, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(file, p, models.PermissionView); err != nil {
		return nil, err
	}
	return s.fileRepo.ListVersions(ctx, id)
}

// DownloadURL issues a temporary read locator and records the download
func (s *fileService) DownloadURL(ctx context.Context, p models.Principal, id string, ttl time.Duration) (string, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.access.Require(file, p, models.PermissionView); err != nil {
		return "", err
	}
	if !file.Downloadable() {
		if file.Status == models.StatusDeleted {
			return "", &domain.NotFoundError{Message: fmt.Sprintf("file %s is deleted", id)}
		}
		return "", &domain.ConflictError{
			Message:      fmt.Sprintf("file is not downloadable while %s", file.Status),
			ResourceType: "file",
			ResourceID:   file.ID,
		}
	}

	if ttl <= 0 {
		ttl = config.DefaultDownloadTTL
	}
	if ttl > config.MaxDownloadTTL {
		ttl = config.MaxDownloadTTL
	}

	url, err := s.store.PresignedGetURL(ctx, file.Storage, ttl)
	if err != nil {
		return "", &domain.StorageBackendError{
			Message: fmt.Sprintf("issue download URL for file %s: %v", id, err),
		}
	}
	if err := s.fileRepo.RecordDownload(ctx, id); err != nil {
		s.logger.Warn("download not recorded", "file_id", id, "error", err)
	}
	return url, nil
}
