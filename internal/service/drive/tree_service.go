package drive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/domain/services"
	driveSvc "skyvault/internal/domain/services/drive"
)

type treeService struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	access     services.AccessResolver
	logger     *slog.Logger
}

// NewTreeService creates the read-only structure query service
func NewTreeService(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	access services.AccessResolver,
	logger *slog.Logger,
) driveSvc.TreeService {
	return &treeService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		access:     access,
		logger:     logger,
	}
}

// Tree builds the principal's full nested folder/file tree in one pass over
// the owner's folder rows. Runs without locks; a concurrent move may briefly
// surface in both the old and new position.
func (s *treeService) Tree(ctx context.Context, p models.Principal) (*models.Tree, error) {
	folders, err := s.folderRepo.ListAllByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*models.FolderTreeNode, len(folders))
	for i := range folders {
		folder := &folders[i]
		if folder.IsTrash {
			continue
		}
		nodes[folder.ID] = &models.FolderTreeNode{
			ID:        folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			Path:      folder.Path,
			CreatedAt: folder.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Files:     []models.FileTreeNode{},
		}
	}

	for _, node := range nodes {
		files, err := s.fileRepo.ListByFolder(ctx, &node.ID, p.UserID, false)
		if err != nil {
			return nil, err
		}
		node.Files = fileTreeNodes(files)
	}

	tree := &models.Tree{Folders: []*models.FolderTreeNode{}}
	for _, node := range nodes {
		if node.ParentID == nil {
			tree.Folders = append(tree.Folders, node)
			continue
		}
		parent, ok := nodes[*node.ParentID]
		if !ok {
			// Orphan: parent trashed or gone. Surface at root rather than
			// dropping the subtree; the repair pass re-homes it durably.
			tree.Folders = append(tree.Folders, node)
			continue
		}
		parent.Folders = append(parent.Folders, node)
	}

	rootFiles, err := s.fileRepo.ListByFolder(ctx, nil, p.UserID, false)
	if err != nil {
		return nil, err
	}
	tree.Files = fileTreeNodes(rootFiles)

	sortTree(tree.Folders)
	return tree, nil
}

func fileTreeNodes(files []models.File) []models.FileTreeNode {
	out := make([]models.FileTreeNode, 0, len(files))
	for _, f := range files {
		out = append(out, models.FileTreeNode{
			ID:        f.ID,
			Name:      f.Name,
			FolderID:  f.FolderID,
			Size:      f.Size,
			MimeType:  f.MimeType,
			Status:    f.Status,
			UpdatedAt: f.UpdatedAt,
		})
	}
	return out
}

// sortTree orders sibling folders by name at every level for stable output.
// Iterative over an explicit queue; tree depth is user-controlled.
func sortTree(nodes []*models.FolderTreeNode) {
	queue := [][]*models.FolderTreeNode{nodes}
	for len(queue) > 0 {
		level := queue[0]
		queue = queue[1:]
		sort.Slice(level, func(i, j int) bool { return level[i].Name < level[j].Name })
		for _, node := range level {
			if len(node.Folders) > 0 {
				queue = append(queue, node.Folders)
			}
		}
	}
}

// Breadcrumbs resolves the root-first ancestor chain of a folder, headed by
// the synthetic root element. A cycle in stored parent references surfaces
// as ErrInconsistentState instead of hanging the walk.
func (s *treeService) Breadcrumbs(ctx context.Context, p models.Principal, folderID string) ([]models.Breadcrumb, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(folder, p, models.PermissionView); err != nil {
		return nil, err
	}

	var chain []models.Breadcrumb
	visited := map[string]bool{}
	current := folder
	for {
		if visited[current.ID] {
			return nil, &domain.InconsistentStateError{
				Message: fmt.Sprintf("cycle detected in ancestor chain at folder %s", current.ID),
			}
		}
		visited[current.ID] = true

		id := current.ID
		chain = append(chain, models.Breadcrumb{ID: &id, Name: current.Name, Path: current.Path})
		if current.ParentID == nil {
			break
		}
		current, err = s.folderRepo.GetByID(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
	}

	// Reverse into root-first order and prepend the synthetic root
	out := make([]models.Breadcrumb, 0, len(chain)+1)
	out = append(out, models.SyntheticRoot())
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i])
	}
	return out, nil
}
