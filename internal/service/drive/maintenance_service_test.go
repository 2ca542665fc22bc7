package drive

import (
	"context"
	"errors"
	"testing"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
)

func TestFolderSizeAndConsistency(t *testing.T) {
	ctx := context.Background()

	t.Run("recursive live size from source records", func(t *testing.T) {
		e := newEnv(t)
		top := e.mustCreateFolder(t, owner(), nil, "Top")
		sub := e.mustCreateFolder(t, owner(), &top.ID, "Sub")
		e.mustUploadFile(t, owner(), &top.ID, "a.txt", 100)
		e.mustUploadFile(t, owner(), &sub.ID, "b.txt", 250)
		trashed := e.mustUploadFile(t, owner(), &sub.ID, "c.txt", 999)
		if err := e.files.DeleteFile(ctx, owner(), trashed.ID, false); err != nil {
			t.Fatalf("trash: %v", err)
		}

		size, err := e.maintenance.FolderSize(ctx, owner(), top.ID)
		if err != nil {
			t.Fatalf("folder size: %v", err)
		}
		if size != 350 {
			t.Errorf("size = %d, want 350 (trashed file excluded)", size)
		}
	})

	t.Run("consistency check detects drift", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		e.mustUploadFile(t, owner(), &folder.ID, "a.txt", 100)

		if err := e.maintenance.CheckFolderConsistency(ctx, owner(), folder.ID); err != nil {
			t.Fatalf("consistent folder flagged: %v", err)
		}

		// Drift the counter behind the service's back
		e.folderRepo.mu.Lock()
		e.folderRepo.folders[folder.ID].TotalSize = 9999
		e.folderRepo.mu.Unlock()

		err := e.maintenance.CheckFolderConsistency(ctx, owner(), folder.ID)
		if !errors.Is(err, domain.ErrInconsistentState) {
			t.Errorf("err = %v, want ErrInconsistentState", err)
		}
	})

	t.Run("repair rewrites drifted counters", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		e.mustUploadFile(t, owner(), &folder.ID, "a.txt", 100)
		e.mustCreateFolder(t, owner(), &folder.ID, "Sub")

		e.folderRepo.mu.Lock()
		e.folderRepo.folders[folder.ID].FileCount = 7
		e.folderRepo.folders[folder.ID].FolderCount = 7
		e.folderRepo.folders[folder.ID].TotalSize = 7
		e.folderRepo.mu.Unlock()

		repaired, err := e.maintenance.RepairFolderCounts(ctx, owner(), folder.ID)
		if err != nil {
			t.Fatalf("repair: %v", err)
		}
		if repaired.FolderCount != 1 || repaired.FileCount != 1 || repaired.TotalSize != 100 {
			t.Errorf("repaired counters = (%d, %d, %d), want (1, 1, 100)",
				repaired.FolderCount, repaired.FileCount, repaired.TotalSize)
		}
		if err := e.maintenance.CheckFolderConsistency(ctx, owner(), folder.ID); err != nil {
			t.Errorf("still inconsistent after repair: %v", err)
		}
	})
}

func TestRecomputeUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds from file rows", func(t *testing.T) {
		e := newEnv(t)
		e.mustUploadFile(t, owner(), nil, "a.txt", 100)
		e.mustUploadFile(t, owner(), nil, "b.txt", 200)

		e.usageRepo.mu.Lock()
		e.usageRepo.usage[owner().UserID].StorageUsed = 12345
		e.usageRepo.mu.Unlock()

		got, err := e.maintenance.RecomputeUsage(ctx, owner(), "")
		if err != nil {
			t.Fatalf("recompute: %v", err)
		}
		if got != 300 {
			t.Errorf("usage = %d, want 300", got)
		}
	})

	t.Run("trashed rows keep counting until purge", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "a.txt", 100)
		if err := e.files.DeleteFile(ctx, owner(), file.ID, false); err != nil {
			t.Fatalf("trash: %v", err)
		}

		got, err := e.maintenance.RecomputeUsage(ctx, owner(), "")
		if err != nil {
			t.Fatalf("recompute: %v", err)
		}
		if got != 100 {
			t.Errorf("usage = %d, want trashed row still counted", got)
		}
	})

	t.Run("another owner requires admin", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.maintenance.RecomputeUsage(ctx, owner(), "user-other")
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
		if _, err := e.maintenance.RecomputeUsage(ctx, models.Principal{UserID: "user-admin", Admin: true}, "user-other"); err != nil {
			t.Errorf("admin recompute: %v", err)
		}
	})
}

func TestRepairPass(t *testing.T) {
	ctx := context.Background()

	t.Run("re-homes orphans", func(t *testing.T) {
		e := newEnv(t)
		parent := e.mustCreateFolder(t, owner(), nil, "Parent")
		child := e.mustCreateFolder(t, owner(), &parent.ID, "Child")
		grandchild := e.mustCreateFolder(t, owner(), &child.ID, "Grandchild")

		// Parent row vanishes without a cascade
		e.folderRepo.mu.Lock()
		delete(e.folderRepo.folders, parent.ID)
		e.folderRepo.mu.Unlock()

		report, err := e.maintenance.Repair(ctx, owner())
		if err != nil {
			t.Fatalf("repair: %v", err)
		}
		if len(report.OrphanedFolders) != 1 || report.OrphanedFolders[0] != child.ID {
			t.Errorf("orphans = %v, want [%s]", report.OrphanedFolders, child.ID)
		}

		gotChild, _ := e.folderRepo.GetByID(ctx, child.ID)
		if gotChild.ParentID != nil || gotChild.Path != models.RootPath {
			t.Errorf("child = parent %v path %q, want re-homed at root", gotChild.ParentID, gotChild.Path)
		}
		gotGrandchild, _ := e.folderRepo.GetByID(ctx, grandchild.ID)
		if gotGrandchild.Path != "/Child/" {
			t.Errorf("grandchild path = %q, want /Child/", gotGrandchild.Path)
		}
	})

	t.Run("resumes a half-applied trash cascade", func(t *testing.T) {
		e := newEnv(t)
		top := e.mustCreateFolder(t, owner(), nil, "Top")
		sub := e.mustCreateFolder(t, owner(), &top.ID, "Sub")
		file := e.mustUploadFile(t, owner(), &sub.ID, "doc.txt", 100)

		// Simulate a cascade that died after the root flag
		e.folderRepo.mu.Lock()
		e.folderRepo.folders[top.ID].IsTrash = true
		e.folderRepo.mu.Unlock()

		report, err := e.maintenance.Repair(ctx, owner())
		if err != nil {
			t.Fatalf("repair: %v", err)
		}
		if len(report.ResumedCascades) != 1 || report.ResumedCascades[0] != top.ID {
			t.Errorf("resumed = %v, want [%s]", report.ResumedCascades, top.ID)
		}

		gotSub, _ := e.folderRepo.GetByID(ctx, sub.ID)
		if !gotSub.IsTrash {
			t.Error("descendant not trashed by the resumed cascade")
		}
		gotFile, _ := e.fileRepo.GetByID(ctx, file.ID)
		if gotFile.Status != models.StatusDeleted {
			t.Errorf("file status = %q, want deleted", gotFile.Status)
		}
	})

	t.Run("repairs drifted counters and usage", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		e.mustUploadFile(t, owner(), &folder.ID, "a.txt", 100)

		e.folderRepo.mu.Lock()
		e.folderRepo.folders[folder.ID].TotalSize = 5000
		e.folderRepo.mu.Unlock()
		e.usageRepo.mu.Lock()
		e.usageRepo.usage[owner().UserID].StorageUsed = 150
		e.usageRepo.mu.Unlock()

		report, err := e.maintenance.Repair(ctx, owner())
		if err != nil {
			t.Fatalf("repair: %v", err)
		}
		if len(report.RepairedFolders) != 1 || report.RepairedFolders[0] != folder.ID {
			t.Errorf("repaired = %v, want [%s]", report.RepairedFolders, folder.ID)
		}
		if report.RecomputedUsage != 100 {
			t.Errorf("recomputed usage = %d, want 100", report.RecomputedUsage)
		}
		if report.UsageDriftBefore != 50 {
			t.Errorf("usage drift = %d, want 50", report.UsageDriftBefore)
		}

		gotFolder, _ := e.folderRepo.GetByID(ctx, folder.ID)
		if gotFolder.TotalSize != 100 {
			t.Errorf("folder total_size = %d, want 100", gotFolder.TotalSize)
		}
	})

	t.Run("a clean tree reports nothing", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		e.mustUploadFile(t, owner(), &folder.ID, "a.txt", 100)

		report, err := e.maintenance.Repair(ctx, owner())
		if err != nil {
			t.Fatalf("repair: %v", err)
		}
		if len(report.OrphanedFolders) != 0 || len(report.ResumedCascades) != 0 || len(report.RepairedFolders) != 0 {
			t.Errorf("report = %+v, want nothing to fix", report)
		}
		if report.UsageDriftBefore != 0 || report.RecomputedUsage != 100 {
			t.Errorf("usage figures = drift %d recomputed %d", report.UsageDriftBefore, report.RecomputedUsage)
		}

		// Idempotent: a second pass finds the same clean state
		again, err := e.maintenance.Repair(ctx, owner())
		if err != nil {
			t.Fatalf("second repair: %v", err)
		}
		if len(again.OrphanedFolders) != 0 || len(again.ResumedCascades) != 0 || len(again.RepairedFolders) != 0 {
			t.Errorf("second report = %+v, want nothing to fix", again)
		}
	})
}
