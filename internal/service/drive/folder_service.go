package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/domain/repositories"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/domain/services"
	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/notify"
	"skyvault/internal/storage"
)

type folderService struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	usageRepo  driveRepo.UsageRepository
	store      storage.ObjectStore
	txManager  repositories.TransactionManager
	validator  *ResourceValidator
	access     services.AccessResolver
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewFolderService creates the mutation engine for the folder tree
func NewFolderService(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	usageRepo driveRepo.UsageRepository,
	store storage.ObjectStore,
	txManager repositories.TransactionManager,
	validator *ResourceValidator,
	access services.AccessResolver,
	notifier notify.Notifier,
	logger *slog.Logger,
) driveSvc.FolderService {
	return &folderService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		usageRepo:  usageRepo,
		store:      store,
		txManager:  txManager,
		validator:  validator,
		access:     access,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateFolder creates a folder under the given parent (nil = root)
func (s *folderService) CreateFolder(ctx context.Context, req *driveSvc.CreateFolderRequest) (*models.Folder, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	parent, err := s.validator.ResolveParent(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		if err := s.access.Require(parent, req.Principal, models.PermissionEdit); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	folder := &models.Folder{
		ID:          uuid.NewString(),
		OwnerID:     req.Principal.UserID,
		Name:        req.Name,
		Path:        pathUnder(parent),
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if parent != nil {
		folder.ParentID = &parent.ID
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.validator.EnsureFolderName(ctx, folder.ParentID, folder.OwnerID, folder.Name, ""); err != nil {
			return err
		}
		if err := s.folderRepo.Create(ctx, folder); err != nil {
			return err
		}
		if parent != nil {
			return s.folderRepo.AdjustCounts(ctx, parent.ID, 1, 0, 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "folder_id", folder.ID, "owner_id", folder.OwnerID, "path", folder.Path)
	return folder, nil
}

// GetFolder retrieves a folder the principal can at least view
func (s *folderService) GetFolder(ctx context.Context, p models.Principal, id string) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(folder, p, models.PermissionView); err != nil {
		return nil, err
	}
	return folder, nil
}

// ListChildren lists the live immediate children of a folder
func (s *folderService) ListChildren(ctx context.Context, p models.Principal, folderID *string) ([]models.Folder, error) {
	folderID = models.NormalizeParentID(folderID)
	ownerID := p.UserID
	if folderID != nil {
		folder, err := s.GetFolder(ctx, p, *folderID)
		if err != nil {
			return nil, err
		}
		ownerID = folder.OwnerID
	}
	return s.folderRepo.ListChildren(ctx, folderID, ownerID, false)
}

// UpdateFolder renames a folder and/or updates its metadata. A rename
// changes the path prefix carried by every descendant, so paths are
// propagated the same way a move propagates them.
func (s *folderService) UpdateFolder(ctx context.Context, p models.Principal, id string, req *driveSvc.UpdateFolderRequest) (*models.Folder, error) {
	var updated *models.Folder

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(folder, p, models.PermissionEdit); err != nil {
			return err
		}

		renamed := false
		if req.Name != nil && *req.Name != folder.Name {
			if err := validateName(*req.Name); err != nil {
				return err
			}
			if err := s.validator.EnsureFolderName(ctx, folder.ParentID, folder.OwnerID, *req.Name, folder.ID); err != nil {
				return err
			}
			folder.Name = *req.Name
			renamed = true
		}
		if req.Description != nil {
			folder.Description = *req.Description
		}
		if req.Color != nil {
			folder.Color = *req.Color
		}
		if req.Icon != nil {
			folder.Icon = *req.Icon
		}
		if req.Tags != nil {
			folder.Tags = req.Tags
		}
		folder.UpdatedAt = time.Now()

		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		if renamed {
			if err := s.propagatePaths(ctx, folder); err != nil {
				return err
			}
		}
		updated = folder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MoveFolder re-parents a folder. The cycle check walks the destination's
// ancestor chain inside the same transaction snapshot and rejects before any
// mutation is applied.
func (s *folderService) MoveFolder(ctx context.Context, p models.Principal, id string, newParentID *string) (*models.Folder, error) {
	newParentID = models.NormalizeParentID(newParentID)
	var moved *models.Folder

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(folder, p, models.PermissionEdit); err != nil {
			return err
		}

		if sameParent(folder.ParentID, newParentID) {
			moved = folder
			return nil
		}

		newParent, err := s.validator.ResolveParent(ctx, newParentID)
		if err != nil {
			return err
		}
		if newParent != nil {
			if err := s.access.Require(newParent, p, models.PermissionEdit); err != nil {
				return err
			}
			// Detect-before-mutate: reject a move that would make the
			// folder its own ancestor
			if err := s.checkNoCycle(ctx, folder.ID, newParent); err != nil {
				return err
			}
		}
		if err := s.validator.EnsureFolderName(ctx, newParentID, folder.OwnerID, folder.Name, folder.ID); err != nil {
			return err
		}

		oldParentID := folder.ParentID
		folder.ParentID = newParentID
		folder.Path = pathUnder(newParent)
		folder.UpdatedAt = time.Now()

		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		if oldParentID != nil {
			if err := s.folderRepo.AdjustCounts(ctx, *oldParentID, -1, 0, 0); err != nil {
				return err
			}
		}
		if newParent != nil {
			if err := s.folderRepo.AdjustCounts(ctx, newParent.ID, 1, 0, 0); err != nil {
				return err
			}
		}
		if err := s.propagatePaths(ctx, folder); err != nil {
			return err
		}

		moved = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder moved", "folder_id", id, "path", moved.Path)
	return moved, nil
}

// checkNoCycle walks the destination's ancestor chain looking for the moved
// folder. Moving under itself or any descendant is rejected. The visited set
// is defense-in-depth against a latent cycle in stored data.
func (s *folderService) checkNoCycle(ctx context.Context, folderID string, destination *models.Folder) error {
	if destination.ID == folderID {
		return &domain.CircularReferenceError{
			Message: "cannot move a folder into itself",
		}
	}

	visited := map[string]bool{destination.ID: true}
	current := destination.ParentID
	for current != nil {
		if *current == folderID {
			return &domain.CircularReferenceError{
				Message: "cannot move a folder into its own descendant",
			}
		}
		if visited[*current] {
			return &domain.InconsistentStateError{
				Message: fmt.Sprintf("cycle detected in ancestor chain at folder %s", *current),
			}
		}
		visited[*current] = true

		ancestor, err := s.folderRepo.GetByID(ctx, *current)
		if err != nil {
			return err
		}
		current = ancestor.ParentID
	}
	return nil
}

// propagatePaths recomputes every descendant's materialized path after the
// root of the subtree changed name or position. Iterative breadth-first walk
// over an explicit queue: folder depth is user-controlled, call-stack depth
// is not the bound here.
func (s *folderService) propagatePaths(ctx context.Context, root *models.Folder) error {
	type node struct {
		folder models.Folder
	}
	queue := []node{{folder: *root}}
	visited := map[string]bool{root.ID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.folderRepo.ListChildren(ctx, &current.folder.ID, current.folder.OwnerID, true)
		if err != nil {
			return err
		}
		prefix := current.folder.ChildPrefix()
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if child.Path != prefix {
				if err := s.folderRepo.UpdatePath(ctx, child.ID, prefix); err != nil {
					return err
				}
				child.Path = prefix
			}
			queue = append(queue, node{folder: child})
		}
	}
	return nil
}

// DeleteFolder soft-deletes into trash, or permanently destroys the subtree
func (s *folderService) DeleteFolder(ctx context.Context, p models.Principal, id string, permanent bool) error {
	if permanent {
		return s.deletePermanent(ctx, p, id)
	}
	return s.moveToTrash(ctx, p, id)
}

// moveToTrash trashes the folder and cascades level by level. The cascade is
// shallow at each step, so a failure partway leaves a folder whose trash
// flag is set but whose descendants are not yet trashed - a state the repair
// pass detects and re-drives.
func (s *folderService) moveToTrash(ctx context.Context, p models.Principal, id string) error {
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(folder, p, models.PermissionEdit); err != nil {
			return err
		}
		if folder.IsTrash {
			return nil
		}

		if err := s.trashCascade(ctx, folder); err != nil {
			return err
		}
		if folder.ParentID != nil {
			if err := s.folderRepo.AdjustCounts(ctx, *folder.ParentID, -1, 0, 0); err != nil {
				// The parent may itself be permanently gone
				if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder trashed", "folder_id", id, "actor", p.UserID)
	if p.Admin {
		if folder, err := s.folderRepo.GetByID(ctx, id); err == nil && folder.OwnerID != p.UserID {
			s.notifier.Notify(ctx, notify.Notification{
				Event:       notify.EventFolderDeleted,
				RecipientID: folder.OwnerID,
				ActorID:     p.UserID,
				Detail:      map[string]string{"folder_id": id, "name": folder.Name},
			})
		}
	}
	return nil
}

// trashCascade applies the trash flag level by level over an explicit queue
func (s *folderService) trashCascade(ctx context.Context, root *models.Folder) error {
	queue := []models.Folder{*root}
	visited := map[string]bool{root.ID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if err := s.folderRepo.SetTrash(ctx, current.ID, true); err != nil {
			return fmt.Errorf("trash folder %s: %w", current.ID, err)
		}

		files, err := s.fileRepo.ListByFolder(ctx, &current.ID, current.OwnerID, false)
		if err != nil {
			return fmt.Errorf("list files of folder %s: %w", current.ID, err)
		}
		now := time.Now()
		for i := range files {
			file := &files[i]
			// Quarantined files stay quarantined: that status dominates and
			// must survive a later restore from trash
			if file.Status != models.StatusActive {
				continue
			}
			file.Status = models.StatusDeleted
			file.DeletedAt = &now
			file.UpdatedAt = now
			if err := s.fileRepo.Update(ctx, file); err != nil {
				return fmt.Errorf("trash file %s: %w", file.ID, err)
			}
		}

		children, err := s.folderRepo.ListChildren(ctx, &current.ID, current.OwnerID, false)
		if err != nil {
			return fmt.Errorf("list children of folder %s: %w", current.ID, err)
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			queue = append(queue, child)
		}
	}
	return nil
}

// deletePermanent destroys the subtree: files first, then folders bottom-up,
// then the folder itself. Irreversible and idempotent. The cascade is
// abort-and-report: a failure stops the pass and names the entity so a rerun
// can resume.
func (s *folderService) deletePermanent(ctx context.Context, p models.Principal, id string) error {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil // already gone
		}
		return err
	}
	if err := s.access.Require(folder, p, models.PermissionManage); err != nil {
		return err
	}

	// Collect the subtree iteratively, shallowest first
	subtree := []models.Folder{*folder}
	visited := map[string]bool{folder.ID: true}
	for i := 0; i < len(subtree); i++ {
		children, err := s.folderRepo.ListChildren(ctx, &subtree[i].ID, subtree[i].OwnerID, true)
		if err != nil {
			return err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			subtree = append(subtree, child)
		}
	}

	// Delete deepest-first so no folder row ever points at a gone parent
	for i := len(subtree) - 1; i >= 0; i-- {
		current := subtree[i]
		if err := s.purgeFolderFiles(ctx, &current); err != nil {
			return fmt.Errorf("purge files of folder %s: %w", current.ID, err)
		}
		if err := s.folderRepo.Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("delete folder %s: %w", current.ID, err)
		}
	}

	if folder.ParentID != nil && !folder.IsTrash {
		if err := s.folderRepo.AdjustCounts(ctx, *folder.ParentID, -1, 0, 0); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	s.logger.Info("folder permanently deleted",
		"folder_id", id,
		"subtree_folders", len(subtree),
		"actor", p.UserID,
	)
	return nil
}

// purgeFolderFiles permanently removes every file of one folder: stored
// object first, then the database row and usage counter together
func (s *folderService) purgeFolderFiles(ctx context.Context, folder *models.Folder) error {
	files, err := s.fileRepo.ListByFolder(ctx, &folder.ID, folder.OwnerID, true)
	if err != nil {
		return err
	}
	for i := range files {
		file := &files[i]
		if file.Storage.Key != "" {
			if err := s.store.Delete(ctx, file.Storage); err != nil {
				return &domain.StorageBackendError{
					Message: fmt.Sprintf("delete stored object for file %s: %v", file.ID, err),
				}
			}
		}
		err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
			if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
				return err
			}
			// Trashed rows still count toward quota until this point
			return s.usageRepo.Add(ctx, file.OwnerID, -file.Size)
		})
		if err != nil {
			return fmt.Errorf("delete file %s: %w", file.ID, err)
		}
	}
	return nil
}

// RestoreFolder pulls a folder back out of trash. When the original parent
// is itself trashed or gone, the folder comes back at root level.
func (s *folderService) RestoreFolder(ctx context.Context, p models.Principal, id string) error {
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.access.Require(folder, p, models.PermissionEdit); err != nil {
			return err
		}
		if !folder.IsTrash {
			return nil
		}

		parent, err := s.validator.ResolveParent(ctx, folder.ParentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		reparented := false
		if parent == nil && folder.ParentID != nil {
			// Original parent trashed or gone; restore at root
			folder.ParentID = nil
			reparented = true
		}
		if err := s.validator.EnsureFolderName(ctx, folder.ParentID, folder.OwnerID, folder.Name, folder.ID); err != nil {
			return err
		}

		if err := s.restoreCascade(ctx, folder); err != nil {
			return err
		}

		folder.IsTrash = false
		folder.TrashedAt = nil
		folder.Path = pathUnder(parent)
		folder.UpdatedAt = time.Now()
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		if parent != nil {
			if err := s.folderRepo.AdjustCounts(ctx, parent.ID, 1, 0, 0); err != nil {
				return err
			}
		}
		if reparented {
			return s.propagatePaths(ctx, folder)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder restored from trash", "folder_id", id, "actor", p.UserID)
	return nil
}

// restoreCascade clears trash flags level by level, the reverse of
// trashCascade. Files the cascade itself trashed come back active; files
// trashed individually before the folder went to trash stay deleted, and
// quarantined files stay quarantined. Individual file deletion adjusts the
// folder aggregates while the cascade does not, so every restored folder's
// counters are recounted from live rows once the subtree is back.
func (s *folderService) restoreCascade(ctx context.Context, root *models.Folder) error {
	cutoff := root.TrashedAt
	var restored []models.Folder
	queue := []models.Folder{*root}
	visited := map[string]bool{root.ID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		restored = append(restored, current)

		if current.ID != root.ID {
			if err := s.folderRepo.SetTrash(ctx, current.ID, false); err != nil {
				return fmt.Errorf("restore folder %s: %w", current.ID, err)
			}
		}

		files, err := s.fileRepo.ListByFolder(ctx, &current.ID, current.OwnerID, true)
		if err != nil {
			return fmt.Errorf("list files of folder %s: %w", current.ID, err)
		}
		now := time.Now()
		for j := range files {
			file := &files[j]
			if file.Status != models.StatusDeleted {
				continue
			}
			if cutoff != nil && file.DeletedAt != nil && file.DeletedAt.Before(*cutoff) {
				// Trashed on its own before the folder was; stays in trash
				continue
			}
			file.Status = models.StatusActive
			file.DeletedAt = nil
			file.UpdatedAt = now
			if err := s.fileRepo.Update(ctx, file); err != nil {
				return fmt.Errorf("restore file %s: %w", file.ID, err)
			}
		}

		children, err := s.folderRepo.ListChildren(ctx, &current.ID, current.OwnerID, true)
		if err != nil {
			return fmt.Errorf("list children of folder %s: %w", current.ID, err)
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			queue = append(queue, child)
		}
	}

	for i := range restored {
		if err := s.recountFolder(ctx, &restored[i]); err != nil {
			return fmt.Errorf("recount folder %s: %w", restored[i].ID, err)
		}
	}
	return nil
}

// recountFolder rewrites the folder's aggregates from live child rows
func (s *folderService) recountFolder(ctx context.Context, folder *models.Folder) error {
	children, err := s.folderRepo.ListChildren(ctx, &folder.ID, folder.OwnerID, false)
	if err != nil {
		return err
	}
	files, err := s.fileRepo.ListByFolder(ctx, &folder.ID, folder.OwnerID, false)
	if err != nil {
		return err
	}
	var size int64
	for _, f := range files {
		size += f.Size
	}
	return s.folderRepo.SetCounts(ctx, folder.ID, int64(len(children)), int64(len(files)), size)
}

// ShareFolder upserts a grant on the folder
func (s *folderService) ShareFolder(ctx context.Context, p models.Principal, id string, req *driveSvc.ShareRequest) (*models.Folder, error) {
	var shared *models.Folder

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := upsertGrant(folder, &folder.SharedWith, p, req, s.access); err != nil {
			return err
		}
		folder.UpdatedAt = time.Now()
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		shared = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventShareGranted,
		RecipientID: req.GranteeID,
		ActorID:     p.UserID,
		Detail:      map[string]string{"folder_id": id, "permission": string(req.Permission)},
	})
	return shared, nil
}

// UnshareFolder removes a grantee's entry
func (s *folderService) UnshareFolder(ctx context.Context, p models.Principal, id, granteeID string) (*models.Folder, error) {
	var unshared *models.Folder

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := removeGrant(folder, &folder.SharedWith, p, granteeID, s.access); err != nil {
			return err
		}
		folder.UpdatedAt = time.Now()
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		unshared = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Event:       notify.EventShareRevoked,
		RecipientID: granteeID,
		ActorID:     p.UserID,
		Detail:      map[string]string{"folder_id": id},
	})
	return unshared, nil
}

// CopyFolder duplicates a folder's metadata under a new parent. The copy is
// a fresh entity with zeroed counters and no grants.
func (s *folderService) CopyFolder(ctx context.Context, p models.Principal, id string, newParentID *string) (*models.Folder, error) {
	source, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(source, p, models.PermissionView); err != nil {
		return nil, err
	}

	return s.CreateFolder(ctx, &driveSvc.CreateFolderRequest{
		Principal:   p,
		ParentID:    models.NormalizeParentID(newParentID),
		Name:        source.Name,
		Description: source.Description,
		Color:       source.Color,
		Icon:        source.Icon,
		Tags:        append([]string(nil), source.Tags...),
	})
}

// ListTrash lists the principal's trashed folders
func (s *folderService) ListTrash(ctx context.Context, p models.Principal) ([]models.Folder, error) {
	all, err := s.folderRepo.ListAllByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	var trashed []models.Folder
	for _, folder := range all {
		if folder.IsTrash {
			trashed = append(trashed, folder)
		}
	}
	return trashed, nil
}

// upsertGrant validates and applies a share request against a grant list.
// Requires manage on the resource; self-sharing and sharing to the owner
// are rejected.
func upsertGrant(resource models.SharedResource, grants *[]models.Grant, p models.Principal, req *driveSvc.ShareRequest, access services.AccessResolver) error {
	if !req.Permission.Valid() {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown permission level %q", req.Permission)}
	}
	if req.GranteeID == "" {
		return &domain.ValidationError{Message: "grantee is required"}
	}
	if req.GranteeID == p.UserID || req.GranteeID == resource.ResourceOwner() {
		return &domain.ValidationError{Message: "cannot share a resource with its owner or yourself"}
	}
	if err := access.Require(resource, p, models.PermissionManage); err != nil {
		return err
	}

	grant := models.Grant{
		UserID:     req.GranteeID,
		Permission: req.Permission,
		GrantedBy:  p.UserID,
		GrantedAt:  time.Now(),
		Message:    req.Message,
	}
	for i := range *grants {
		if (*grants)[i].UserID == req.GranteeID {
			(*grants)[i] = grant
			return nil
		}
	}
	*grants = append(*grants, grant)
	return nil
}

// removeGrant removes a grantee's entry from a grant list
func removeGrant(resource models.SharedResource, grants *[]models.Grant, p models.Principal, granteeID string, access services.AccessResolver) error {
	if err := access.Require(resource, p, models.PermissionManage); err != nil {
		return err
	}
	for i := range *grants {
		if (*grants)[i].UserID == granteeID {
			*grants = append((*grants)[:i], (*grants)[i+1:]...)
			return nil
		}
	}
	return &domain.NotFoundError{Message: fmt.Sprintf("no grant for user %s", granteeID)}
}

// sameParent compares two normalized parent references
func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
