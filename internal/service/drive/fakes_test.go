package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/domain/repositories"
	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/notify"
	"skyvault/internal/plans"
	"skyvault/internal/scanner"
	"skyvault/internal/storage"
)

// In-memory repository fakes. They mirror the Postgres implementations'
// contracts: clones in and out, sentinel NotFound errors, clamped counters.

type fakeFolderRepo struct {
	mu      sync.Mutex
	folders map[string]*models.Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[string]*models.Folder)}
}

func cloneFolder(f *models.Folder) *models.Folder {
	c := *f
	c.Tags = append([]string(nil), f.Tags...)
	c.SharedWith = append([]models.Grant(nil), f.SharedWith...)
	return &c
}

func (r *fakeFolderRepo) Create(_ context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[folder.ID]; ok {
		return &domain.ConflictError{Message: "duplicate folder id", ResourceType: "folder", ResourceID: folder.ID}
	}
	r.folders[folder.ID] = cloneFolder(folder)
	return nil
}

func (r *fakeFolderRepo) GetByID(_ context.Context, id string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return cloneFolder(f), nil
}

func (r *fakeFolderRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Folder, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeFolderRepo) Update(_ context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	updated := cloneFolder(folder)
	// Counters are owned by AdjustCounts, like the SQL UPDATE column list
	updated.FileCount = stored.FileCount
	updated.FolderCount = stored.FolderCount
	updated.TotalSize = stored.TotalSize
	r.folders[folder.ID] = updated
	return nil
}

func (r *fakeFolderRepo) UpdatePath(_ context.Context, id, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.Path = path
	return nil
}

func (r *fakeFolderRepo) SetTrash(_ context.Context, id string, trashed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.IsTrash = trashed
	if trashed {
		now := time.Now()
		f.TrashedAt = &now
	} else {
		f.TrashedAt = nil
	}
	return nil
}

func (r *fakeFolderRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.folders, id)
	return nil
}

func (r *fakeFolderRepo) ListChildren(_ context.Context, parentID *string, ownerID string, includeTrashed bool) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Folder
	for _, f := range r.folders {
		if parentID == nil {
			if f.ParentID != nil || f.OwnerID != ownerID {
				continue
			}
		} else if f.ParentID == nil || *f.ParentID != *parentID {
			continue
		}
		if f.IsTrash && !includeTrashed {
			continue
		}
		out = append(out, *cloneFolder(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFolderRepo) AdjustCounts(_ context.Context, id string, folderDelta, fileDelta, sizeDelta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.FolderCount = max64(f.FolderCount+folderDelta, 0)
	f.FileCount = max64(f.FileCount+fileDelta, 0)
	f.TotalSize = max64(f.TotalSize+sizeDelta, 0)
	return nil
}

func (r *fakeFolderRepo) SetCounts(_ context.Context, id string, folderCount, fileCount, totalSize int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.FolderCount = folderCount
	f.FileCount = fileCount
	f.TotalSize = totalSize
	return nil
}

func (r *fakeFolderRepo) ListAllByOwner(_ context.Context, ownerID string) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Folder
	for _, f := range r.folders {
		if f.OwnerID == ownerID {
			out = append(out, *cloneFolder(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFolderRepo) Search(_ context.Context, callerID, query string) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.Folder
	for _, f := range r.folders {
		if f.IsTrash || !folderVisibleTo(f, callerID) {
			continue
		}
		if folderMatches(f, q) {
			out = append(out, *cloneFolder(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func folderVisibleTo(f *models.Folder, callerID string) bool {
	if f.OwnerID == callerID {
		return true
	}
	for _, g := range f.SharedWith {
		if g.UserID == callerID {
			return true
		}
	}
	return false
}

func folderMatches(f *models.Folder, q string) bool {
	if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(strings.ToLower(f.Description), q) {
		return true
	}
	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

type fakeFileRepo struct {
	mu         sync.Mutex
	files      map[string]*models.File
	versions   map[string][]models.FileVersion
	failUpdate bool
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		files:    make(map[string]*models.File),
		versions: make(map[string][]models.FileVersion),
	}
}

func cloneFile(f *models.File) *models.File {
	c := *f
	c.SharedWith = append([]models.Grant(nil), f.SharedWith...)
	if f.Risk != nil {
		risk := *f.Risk
		c.Risk = &risk
	}
	return &c
}

func (r *fakeFileRepo) Create(_ context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[file.ID]; ok {
		return &domain.ConflictError{Message: "duplicate file id", ResourceType: "file", ResourceID: file.ID}
	}
	r.files[file.ID] = cloneFile(file)
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return cloneFile(f), nil
}

func (r *fakeFileRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.File, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeFileRepo) Update(_ context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return fmt.Errorf("update unavailable")
	}
	if _, ok := r.files[file.ID]; !ok {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}
	r.files[file.ID] = cloneFile(file)
	return nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	delete(r.versions, id)
	return nil
}

func (r *fakeFileRepo) ListByFolder(_ context.Context, folderID *string, ownerID string, includeDeleted bool) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if folderID == nil {
			if f.FolderID != nil || f.OwnerID != ownerID {
				continue
			}
		} else if f.FolderID == nil || *f.FolderID != *folderID {
			continue
		}
		if f.Status == models.StatusDeleted && !includeDeleted {
			continue
		}
		out = append(out, *cloneFile(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFileRepo) AppendVersion(_ context.Context, fileID string, version *models.FileVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions[fileID] {
		if v.Version == version.Version {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %d already recorded", version.Version),
				ResourceType: "file_version",
				ResourceID:   fileID,
			}
		}
	}
	r.versions[fileID] = append(r.versions[fileID], *version)
	return nil
}

func (r *fakeFileRepo) ListVersions(_ context.Context, fileID string) ([]models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.FileVersion(nil), r.versions[fileID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *fakeFileRepo) GetVersion(_ context.Context, fileID string, version int) (*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions[fileID] {
		if v.Version == version {
			entry := v
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("version %d of file %s: %w", version, fileID, domain.ErrNotFound)
}

func (r *fakeFileRepo) RecordDownload(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	f.DownloadCount++
	now := time.Now()
	f.LastDownloadAt = &now
	return nil
}

func (r *fakeFileRepo) Search(_ context.Context, callerID, query string) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.File
	for _, f := range r.files {
		if f.Status == models.StatusDeleted || !fileVisibleTo(f, callerID) {
			continue
		}
		if strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, *cloneFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFileRepo) SearchInFolders(_ context.Context, folderIDs []string, query string) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inScope := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		inScope[id] = true
	}
	q := strings.ToLower(query)
	var out []models.File
	for _, f := range r.files {
		if f.Status == models.StatusDeleted || f.FolderID == nil || !inScope[*f.FolderID] {
			continue
		}
		if strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, *cloneFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func fileVisibleTo(f *models.File, callerID string) bool {
	if f.OwnerID == callerID {
		return true
	}
	for _, g := range f.SharedWith {
		if g.UserID == callerID {
			return true
		}
	}
	return false
}

type fakeUsageRepo struct {
	mu    sync.Mutex
	usage map[string]*models.Usage
	files *fakeFileRepo
}

func newFakeUsageRepo(files *fakeFileRepo) *fakeUsageRepo {
	return &fakeUsageRepo{usage: make(map[string]*models.Usage), files: files}
}

func (r *fakeUsageRepo) Get(_ context.Context, ownerID string) (*models.Usage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[ownerID]
	if !ok {
		u = &models.Usage{OwnerID: ownerID, Plan: plans.DefaultPlan, UpdatedAt: time.Now()}
		r.usage[ownerID] = u
	}
	out := *u
	return &out, nil
}

func (r *fakeUsageRepo) Add(_ context.Context, ownerID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[ownerID]
	if !ok {
		u = &models.Usage{OwnerID: ownerID, Plan: plans.DefaultPlan}
		r.usage[ownerID] = u
	}
	u.StorageUsed = max64(u.StorageUsed+delta, 0)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUsageRepo) SetPlan(_ context.Context, ownerID, plan string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[ownerID]
	if !ok {
		u = &models.Usage{OwnerID: ownerID}
		r.usage[ownerID] = u
	}
	u.Plan = plan
	u.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUsageRepo) Recompute(_ context.Context, ownerID string) (int64, error) {
	r.files.mu.Lock()
	var total int64
	for _, f := range r.files.files {
		if f.OwnerID == ownerID {
			total += f.Size
		}
	}
	r.files.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[ownerID]
	if !ok {
		u = &models.Usage{OwnerID: ownerID, Plan: plans.DefaultPlan}
		r.usage[ownerID] = u
	}
	u.StorageUsed = total
	u.UpdatedAt = time.Now()
	return total, nil
}

// fakeObjectStore is an in-memory ObjectStore with failure switches
type fakeObjectStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	deleted      []string
	failRelocate bool
	failDelete   bool
	failPresign  bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ string) (models.StorageLocator, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.StorageLocator{}, err
	}
	fullKey := string(storage.AreaActive) + "/" + key
	s.mu.Lock()
	s.objects[fullKey] = data
	s.mu.Unlock()
	return models.StorageLocator{Provider: "fake", Bucket: "test", Key: fullKey}, nil
}

func (s *fakeObjectStore) Relocate(_ context.Context, loc models.StorageLocator, target storage.Area) (models.StorageLocator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRelocate {
		return models.StorageLocator{}, fmt.Errorf("relocate unavailable")
	}
	key := loc.Key
	if i := strings.Index(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	newKey := string(target) + "/" + key
	if data, ok := s.objects[loc.Key]; ok {
		delete(s.objects, loc.Key)
		s.objects[newKey] = data
	}
	newLoc := loc
	newLoc.Key = newKey
	return newLoc, nil
}

func (s *fakeObjectStore) Delete(_ context.Context, loc models.StorageLocator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return fmt.Errorf("delete unavailable")
	}
	delete(s.objects, loc.Key)
	s.deleted = append(s.deleted, loc.Key)
	return nil
}

func (s *fakeObjectStore) PresignedGetURL(_ context.Context, loc models.StorageLocator, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPresign {
		return "", fmt.Errorf("presign unavailable")
	}
	return "https://signed.test/" + loc.Key, nil
}

// fakeAssessor returns a fixed verdict or a fixed error
type fakeAssessor struct {
	risk *models.RiskAssessment
	err  error
}

func (a *fakeAssessor) Assess(_ context.Context, _ models.StorageLocator, _ scanner.FileInfo) (*models.RiskAssessment, error) {
	if a.err != nil {
		return nil, a.err
	}
	risk := *a.risk
	return &risk, nil
}

func cleanVerdict() *models.RiskAssessment {
	return &models.RiskAssessment{Score: 3, Level: "low", AssessedAt: time.Now()}
}

// fakeNotifier records delivered notifications
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notification notify.Notification) {
	n.mu.Lock()
	n.sent = append(n.sent, notification)
	n.mu.Unlock()
}

func (n *fakeNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.Event)
	}
	return out
}

// passTxManager runs the function directly; the fakes are their own
// source of truth and need no transactional scope
type passTxManager struct{}

func (passTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// env bundles the whole service stack over fakes
type env struct {
	folderRepo *fakeFolderRepo
	fileRepo   *fakeFileRepo
	usageRepo  *fakeUsageRepo
	store      *fakeObjectStore
	assessor   *fakeAssessor
	notifier   *fakeNotifier
	plans      *plans.Registry

	folders     driveSvc.FolderService
	files       driveSvc.FileService
	tree        driveSvc.TreeService
	search      driveSvc.SearchService
	maintenance driveSvc.MaintenanceService
	usage       driveSvc.UsageService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	folderRepo := newFakeFolderRepo()
	fileRepo := newFakeFileRepo()
	usageRepo := newFakeUsageRepo(fileRepo)
	store := newFakeObjectStore()
	assessor := &fakeAssessor{risk: cleanVerdict()}
	notifier := &fakeNotifier{}

	planRegistry, err := plans.NewRegistry()
	if err != nil {
		t.Fatalf("load plan registry: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tx := passTxManager{}
	validator := NewResourceValidator(folderRepo, fileRepo)
	access := NewAccessResolver()

	return &env{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		usageRepo:  usageRepo,
		store:      store,
		assessor:   assessor,
		notifier:   notifier,
		plans:      planRegistry,

		folders:     NewFolderService(folderRepo, fileRepo, usageRepo, store, tx, validator, access, notifier, logger),
		files:       NewFileService(fileRepo, folderRepo, usageRepo, store, assessor, planRegistry, tx, validator, access, notifier, logger),
		tree:        NewTreeService(folderRepo, fileRepo, access, logger),
		search:      NewSearchService(folderRepo, fileRepo, access, logger),
		maintenance: NewMaintenanceService(folderRepo, fileRepo, usageRepo, tx, access, logger),
		usage:       NewUsageService(usageRepo, planRegistry, logger),
	}
}

// Shared test helpers

func owner() models.Principal { return models.Principal{UserID: "user-owner"} }

func (e *env) mustCreateFolder(t *testing.T, p models.Principal, parentID *string, name string) *models.Folder {
	t.Helper()
	folder, err := e.folders.CreateFolder(context.Background(), &driveSvc.CreateFolderRequest{
		Principal: p,
		ParentID:  parentID,
		Name:      name,
	})
	if err != nil {
		t.Fatalf("create folder %q: %v", name, err)
	}
	return folder
}

func (e *env) mustUploadFile(t *testing.T, p models.Principal, folderID *string, name string, size int64) *models.File {
	t.Helper()
	ctx := context.Background()
	file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
		Principal: p,
		FolderID:  folderID,
		Name:      name,
		Size:      size,
		MimeType:  "text/plain",
	})
	if err != nil {
		t.Fatalf("create file %q: %v", name, err)
	}
	loc, err := e.store.Put(ctx, file.ID, strings.NewReader(strings.Repeat("x", int(size))), "text/plain")
	if err != nil {
		t.Fatalf("store file %q: %v", name, err)
	}
	file, err = e.files.CompleteUpload(ctx, p, file.ID, &driveSvc.UploadResult{
		Locator:  loc,
		Size:     size,
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("complete file %q: %v", name, err)
	}
	return file
}
