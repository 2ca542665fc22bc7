package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/notify"
)

func TestCreateFile(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves an uploading record and quota", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")

		file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), FolderID: &folder.ID, Name: "report.pdf", Size: 1000, MimeType: "application/pdf",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if file.Status != models.StatusUploading {
			t.Errorf("status = %q, want uploading", file.Status)
		}
		if file.CurrentVersion != 1 {
			t.Errorf("current_version = %d, want 1", file.CurrentVersion)
		}

		gotFolder, _ := e.folderRepo.GetByID(ctx, folder.ID)
		if gotFolder.FileCount != 1 || gotFolder.TotalSize != 1000 {
			t.Errorf("folder counts = (%d, %d), want (1, 1000)", gotFolder.FileCount, gotFolder.TotalSize)
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 1000 {
			t.Errorf("usage = %d, want 1000", usage.StorageUsed)
		}
	})

	t.Run("defaults the mime type", func(t *testing.T) {
		e := newEnv(t)
		file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "blob", Size: 10,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if file.MimeType != "application/octet-stream" {
			t.Errorf("mime = %q", file.MimeType)
		}
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		e := newEnv(t)
		for _, size := range []int64{0, -5} {
			_, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
				Principal: owner(), Name: "empty", Size: size,
			})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("size %d: err = %v, want ErrValidation", size, err)
			}
		}
	})

	t.Run("quota exceeded", func(t *testing.T) {
		e := newEnv(t)
		// Free plan holds 5 GiB; two 3 GiB reservations cannot both fit
		if _, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "first.bin", Size: 3 << 30,
		}); err != nil {
			t.Fatalf("first create: %v", err)
		}
		_, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "second.bin", Size: 3 << 30,
		})
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Errorf("err = %v, want ErrQuotaExceeded", err)
		}
	})

	t.Run("larger plan lifts the quota", func(t *testing.T) {
		e := newEnv(t)
		if err := e.usageRepo.SetPlan(ctx, owner().UserID, "pro"); err != nil {
			t.Fatalf("set plan: %v", err)
		}
		for i, size := range []int64{3 << 30, 3 << 30} {
			if _, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
				Principal: owner(), Name: fmt.Sprintf("big-%d.bin", i), Size: size,
			}); err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
		}
	})

	t.Run("duplicate sibling name", func(t *testing.T) {
		e := newEnv(t)
		e.mustUploadFile(t, owner(), nil, "notes.txt", 10)
		_, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "notes.txt", Size: 10,
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})
}

func TestCompleteUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("clean scan activates", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "clean.txt", 50)

		if file.Status != models.StatusActive {
			t.Errorf("status = %q, want active", file.Status)
		}
		if file.Risk == nil || file.Risk.Level != "low" {
			t.Errorf("risk = %+v, want low verdict attached", file.Risk)
		}
		if !strings.HasPrefix(file.Storage.Key, "active/") {
			t.Errorf("storage key = %q, want active area", file.Storage.Key)
		}
	})

	t.Run("size delta settles counters", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), FolderID: &folder.ID, Name: "doc.txt", Size: 100,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		loc, _ := e.store.Put(ctx, file.ID, strings.NewReader(strings.Repeat("x", 130)), "text/plain")
		if _, err := e.files.CompleteUpload(ctx, owner(), file.ID, &driveSvc.UploadResult{
			Locator: loc, Size: 130, MimeType: "text/plain",
		}); err != nil {
			t.Fatalf("complete: %v", err)
		}

		gotFolder, _ := e.folderRepo.GetByID(ctx, folder.ID)
		if gotFolder.TotalSize != 130 {
			t.Errorf("folder total_size = %d, want 130", gotFolder.TotalSize)
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 130 {
			t.Errorf("usage = %d, want 130", usage.StorageUsed)
		}
	})

	t.Run("actual bytes over quota refuse to settle", func(t *testing.T) {
		e := newEnv(t)
		file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "big.bin", Size: 3 << 30,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		// Transfer lands more bytes than were declared at reservation time
		_, err = e.files.CompleteUpload(ctx, owner(), file.ID, &driveSvc.UploadResult{
			Locator: models.StorageLocator{Provider: "s3", Key: "active/" + file.ID},
			Size:    6 << 30,
		})
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Fatalf("err = %v, want ErrQuotaExceeded", err)
		}

		got, _ := e.fileRepo.GetByID(ctx, file.ID)
		if got.Status != models.StatusUploading || got.Size != 3<<30 {
			t.Errorf("file = status %q size %d, want the reservation untouched", got.Status, got.Size)
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 3<<30 {
			t.Errorf("usage = %d, want the reserved size only", usage.StorageUsed)
		}
	})

	t.Run("high risk quarantines before exposure", func(t *testing.T) {
		e := newEnv(t)
		e.assessor.risk = &models.RiskAssessment{Score: 95, Level: "high", Malicious: true, AssessedAt: time.Now()}

		file := e.completeOne(t, "malware.exe", 60)
		if file.Status != models.StatusQuarantined {
			t.Errorf("status = %q, want quarantined", file.Status)
		}
		if !strings.HasPrefix(file.Storage.Key, "quarantine/") {
			t.Errorf("storage key = %q, want quarantine area", file.Storage.Key)
		}
		if file.QuarantinedAt == nil {
			t.Error("quarantined_at not set")
		}
		events := e.notifier.events()
		if len(events) != 1 || events[0] != notify.EventFileQuarantined {
			t.Errorf("events = %v", events)
		}
	})

	t.Run("scanner failure is the conservative verdict", func(t *testing.T) {
		e := newEnv(t)
		e.assessor.err = errors.New("scanner down")

		file := e.completeOne(t, "unknown.bin", 40)
		if file.Status != models.StatusQuarantined {
			t.Errorf("status = %q, want quarantined on scan failure", file.Status)
		}
		if file.Risk == nil || file.Risk.Score != 100 || file.Risk.Level != "high" {
			t.Errorf("risk = %+v, want the maximal verdict", file.Risk)
		}
	})

	t.Run("failed quarantine relocation discards the upload", func(t *testing.T) {
		e := newEnv(t)
		e.assessor.risk = &models.RiskAssessment{Score: 90, Level: "high", AssessedAt: time.Now()}
		e.store.failRelocate = true

		file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "stuck.bin", Size: 70,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		loc, _ := e.store.Put(ctx, file.ID, strings.NewReader(strings.Repeat("x", 70)), "")
		_, err = e.files.CompleteUpload(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: 70})
		if !errors.Is(err, domain.ErrStorageBackend) {
			t.Fatalf("err = %v, want ErrStorageBackend", err)
		}

		if _, err := e.fileRepo.GetByID(ctx, file.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Error("provisional record survived the failed quarantine")
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 0 {
			t.Errorf("usage = %d, want reservation returned", usage.StorageUsed)
		}
	})

	t.Run("only an uploading file completes", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "done.txt", 10)
		_, err := e.files.CompleteUpload(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: file.Storage, Size: 10})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})
}

// completeOne uploads one file end to end and returns whatever state the
// lifecycle settled on, tolerating a quarantine verdict
func (e *env) completeOne(t *testing.T, name string, size int64) *models.File {
	t.Helper()
	ctx := context.Background()
	file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
		Principal: owner(), Name: name, Size: size,
	})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	loc, err := e.store.Put(ctx, file.ID, strings.NewReader(strings.Repeat("x", int(size))), "")
	if err != nil {
		t.Fatalf("put %q: %v", name, err)
	}
	file, err = e.files.CompleteUpload(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: size})
	if err != nil {
		t.Fatalf("complete %q: %v", name, err)
	}
	return file
}

func TestRenameAndMoveFile(t *testing.T) {
	ctx := context.Background()

	t.Run("rename", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "draft.txt", 10)
		renamed, err := e.files.RenameFile(ctx, owner(), file.ID, "final.txt")
		if err != nil {
			t.Fatalf("rename: %v", err)
		}
		if renamed.Name != "final.txt" {
			t.Errorf("name = %q", renamed.Name)
		}
		if renamed.OriginalName != "draft.txt" {
			t.Errorf("original_name = %q, want the upload name kept", renamed.OriginalName)
		}
	})

	t.Run("rename to taken name", func(t *testing.T) {
		e := newEnv(t)
		e.mustUploadFile(t, owner(), nil, "a.txt", 10)
		file := e.mustUploadFile(t, owner(), nil, "b.txt", 10)
		_, err := e.files.RenameFile(ctx, owner(), file.ID, "a.txt")
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("move keeps both folders in step", func(t *testing.T) {
		e := newEnv(t)
		src := e.mustCreateFolder(t, owner(), nil, "Src")
		dst := e.mustCreateFolder(t, owner(), nil, "Dst")
		file := e.mustUploadFile(t, owner(), &src.ID, "doc.txt", 100)

		moved, err := e.files.MoveFile(ctx, owner(), file.ID, &dst.ID)
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if moved.FolderID == nil || *moved.FolderID != dst.ID {
			t.Errorf("folder = %v, want %s", moved.FolderID, dst.ID)
		}

		gotSrc, _ := e.folderRepo.GetByID(ctx, src.ID)
		gotDst, _ := e.folderRepo.GetByID(ctx, dst.ID)
		if gotSrc.FileCount != 0 || gotSrc.TotalSize != 0 {
			t.Errorf("src counts = (%d, %d), want (0, 0)", gotSrc.FileCount, gotSrc.TotalSize)
		}
		if gotDst.FileCount != 1 || gotDst.TotalSize != 100 {
			t.Errorf("dst counts = (%d, %d), want (1, 100)", gotDst.FileCount, gotDst.TotalSize)
		}
	})

	t.Run("move to top level", func(t *testing.T) {
		e := newEnv(t)
		src := e.mustCreateFolder(t, owner(), nil, "Src")
		file := e.mustUploadFile(t, owner(), &src.ID, "doc.txt", 100)

		moved, err := e.files.MoveFile(ctx, owner(), file.ID, nil)
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if moved.FolderID != nil {
			t.Errorf("folder = %v, want nil", *moved.FolderID)
		}
	})
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete keeps quota, drops folder counts", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		file := e.mustUploadFile(t, owner(), &folder.ID, "doc.txt", 200)

		if err := e.files.DeleteFile(ctx, owner(), file.ID, false); err != nil {
			t.Fatalf("delete: %v", err)
		}
		got, _ := e.fileRepo.GetByID(ctx, file.ID)
		if got.Status != models.StatusDeleted || got.DeletedAt == nil {
			t.Errorf("file = %+v, want deleted with timestamp", got)
		}

		gotFolder, _ := e.folderRepo.GetByID(ctx, folder.ID)
		if gotFolder.FileCount != 0 || gotFolder.TotalSize != 0 {
			t.Errorf("folder counts = (%d, %d), want (0, 0)", gotFolder.FileCount, gotFolder.TotalSize)
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 200 {
			t.Errorf("usage = %d, want 200 until purge", usage.StorageUsed)
		}
	})

	t.Run("uploading file cannot be trashed", func(t *testing.T) {
		e := newEnv(t)
		file, err := e.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: owner(), Name: "partial.bin", Size: 10,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = e.files.DeleteFile(ctx, owner(), file.ID, false)
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("permanent delete removes object, history and quota", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 300)
		loc, _ := e.store.Put(ctx, file.ID+"-v2", strings.NewReader(strings.Repeat("y", 320)), "")
		if _, err := e.files.ReplaceContent(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: 320}); err != nil {
			t.Fatalf("replace: %v", err)
		}

		if err := e.files.DeleteFile(ctx, owner(), file.ID, true); err != nil {
			t.Fatalf("permanent delete: %v", err)
		}
		if _, err := e.fileRepo.GetByID(ctx, file.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Error("row survived permanent delete")
		}
		if len(e.store.deleted) != 2 {
			t.Errorf("deleted %d stored objects, want current and historical", len(e.store.deleted))
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 0 {
			t.Errorf("usage = %d, want 0", usage.StorageUsed)
		}

		// Idempotent
		if err := e.files.DeleteFile(ctx, owner(), file.ID, true); err != nil {
			t.Errorf("second permanent delete: %v", err)
		}
	})
}

func TestQuarantineAndRestore(t *testing.T) {
	ctx := context.Background()
	admin := models.Principal{UserID: "user-admin", Admin: true}

	t.Run("round trip relocates the object", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "sus.bin", 80)

		quarantined, err := e.files.Quarantine(ctx, admin, file.ID, "reported")
		if err != nil {
			t.Fatalf("quarantine: %v", err)
		}
		if quarantined.Status != models.StatusQuarantined {
			t.Errorf("status = %q", quarantined.Status)
		}
		if !strings.HasPrefix(quarantined.Storage.Key, "quarantine/") {
			t.Errorf("storage key = %q, want quarantine area", quarantined.Storage.Key)
		}

		restored, err := e.files.Restore(ctx, admin, file.ID, "false positive")
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		if restored.Status != models.StatusActive || restored.RestoredAt == nil {
			t.Errorf("restored = %+v", restored)
		}
		if !strings.HasPrefix(restored.Storage.Key, "active/") {
			t.Errorf("storage key = %q, want active area", restored.Storage.Key)
		}

		events := e.notifier.events()
		want := []string{notify.EventFileQuarantined, notify.EventFileRestored}
		if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
			t.Errorf("events = %v, want %v", events, want)
		}
	})

	t.Run("failed relocation leaves status untouched", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "sus.bin", 80)
		e.store.failRelocate = true

		_, err := e.files.Quarantine(ctx, admin, file.ID, "reported")
		if !errors.Is(err, domain.ErrStorageBackend) {
			t.Fatalf("err = %v, want ErrStorageBackend", err)
		}
		got, _ := e.fileRepo.GetByID(ctx, file.ID)
		if got.Status != models.StatusActive {
			t.Errorf("status = %q, want active after failed relocation", got.Status)
		}
	})

	t.Run("failed row update moves the object back", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "sus.bin", 80)
		key := file.Storage.Key

		e.fileRepo.mu.Lock()
		e.fileRepo.failUpdate = true
		e.fileRepo.mu.Unlock()
		if _, err := e.files.Quarantine(ctx, admin, file.ID, "reported"); err == nil {
			t.Fatal("quarantine swallowed the update failure")
		}
		e.fileRepo.mu.Lock()
		e.fileRepo.failUpdate = false
		e.fileRepo.mu.Unlock()

		got, _ := e.fileRepo.GetByID(ctx, file.ID)
		if got.Status != models.StatusActive || got.Storage.Key != key {
			t.Errorf("file = status %q key %q, want active at %q", got.Status, got.Storage.Key, key)
		}
		e.store.mu.Lock()
		_, atOriginal := e.store.objects[key]
		e.store.mu.Unlock()
		if !atOriginal {
			t.Errorf("object not moved back to %q", key)
		}
	})

	t.Run("owner without admin cannot quarantine shared views", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 10)
		if _, err := e.files.ShareFile(ctx, owner(), file.ID, &driveSvc.ShareRequest{
			GranteeID: "user-editor", Permission: models.PermissionEdit,
		}); err != nil {
			t.Fatalf("share: %v", err)
		}

		_, err := e.files.Quarantine(ctx, models.Principal{UserID: "user-editor"}, file.ID, "because")
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("quarantining twice is a no-op", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "sus.bin", 80)
		if _, err := e.files.Quarantine(ctx, admin, file.ID, "first"); err != nil {
			t.Fatalf("first: %v", err)
		}
		again, err := e.files.Quarantine(ctx, admin, file.ID, "second")
		if err != nil {
			t.Fatalf("second: %v", err)
		}
		if again.Status != models.StatusQuarantined {
			t.Errorf("status = %q", again.Status)
		}
	})

	t.Run("deleted file cannot be quarantined", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 10)
		if err := e.files.DeleteFile(ctx, owner(), file.ID, false); err != nil {
			t.Fatalf("trash: %v", err)
		}
		_, err := e.files.Quarantine(ctx, admin, file.ID, "late")
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})
}

func TestVersioning(t *testing.T) {
	ctx := context.Background()

	t.Run("replace then restore builds history forward", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Docs")
		file := e.mustUploadFile(t, owner(), &folder.ID, "doc.txt", 100)
		v1Key := file.Storage.Key

		loc, _ := e.store.Put(ctx, file.ID+"-v2", strings.NewReader(strings.Repeat("y", 150)), "")
		replaced, err := e.files.ReplaceContent(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: 150})
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		if replaced.CurrentVersion != 2 || replaced.Size != 150 {
			t.Errorf("replaced = v%d size %d, want v2 size 150", replaced.CurrentVersion, replaced.Size)
		}

		// Restoring v1 is itself a version-creating event
		restored, err := e.files.RestoreVersion(ctx, owner(), file.ID, 1)
		if err != nil {
			t.Fatalf("restore version: %v", err)
		}
		if restored.CurrentVersion != 3 {
			t.Errorf("current_version = %d, want 3", restored.CurrentVersion)
		}
		if restored.Size != 100 || restored.Storage.Key != v1Key {
			t.Errorf("restored content = key %q size %d, want v1 content", restored.Storage.Key, restored.Size)
		}

		versions, err := e.files.ListVersions(ctx, owner(), file.ID)
		if err != nil {
			t.Fatalf("list versions: %v", err)
		}
		if len(versions) != 2 || versions[0].Version != 1 || versions[1].Version != 2 {
			t.Errorf("history = %+v, want versions 1 and 2", versions)
		}

		gotFolder, _ := e.folderRepo.GetByID(ctx, folder.ID)
		if gotFolder.TotalSize != 100 {
			t.Errorf("folder total_size = %d, want 100 after round trip", gotFolder.TotalSize)
		}
		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 100 {
			t.Errorf("usage = %d, want 100 after round trip", usage.StorageUsed)
		}
	})

	t.Run("restoring the current version is a no-op", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		got, err := e.files.RestoreVersion(ctx, owner(), file.ID, 1)
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		if got.CurrentVersion != 1 {
			t.Errorf("current_version = %d, want 1", got.CurrentVersion)
		}
	})

	t.Run("plan bound refuses instead of pruning", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		// Free plan allows five history entries
		for v := 100; v < 105; v++ {
			if err := e.fileRepo.AppendVersion(ctx, file.ID, &models.FileVersion{
				Version: v, StorageKey: fmt.Sprintf("active/old-%d", v), Size: 100,
			}); err != nil {
				t.Fatalf("seed version %d: %v", v, err)
			}
		}

		loc, _ := e.store.Put(ctx, file.ID+"-next", strings.NewReader("zz"), "")
		_, err := e.files.ReplaceContent(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: 2})
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Errorf("err = %v, want ErrQuotaExceeded", err)
		}

		versions, _ := e.fileRepo.ListVersions(ctx, file.ID)
		if len(versions) != 5 {
			t.Errorf("history shrank to %d entries", len(versions))
		}
	})

	t.Run("zero max versions is unlimited", func(t *testing.T) {
		e := newEnv(t)
		if err := e.usageRepo.SetPlan(ctx, owner().UserID, "team"); err != nil {
			t.Fatalf("set plan: %v", err)
		}
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		for v := 100; v < 110; v++ {
			if err := e.fileRepo.AppendVersion(ctx, file.ID, &models.FileVersion{
				Version: v, StorageKey: fmt.Sprintf("active/old-%d", v), Size: 100,
			}); err != nil {
				t.Fatalf("seed version %d: %v", v, err)
			}
		}

		loc, _ := e.store.Put(ctx, file.ID+"-next", strings.NewReader("zz"), "")
		if _, err := e.files.ReplaceContent(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: 2}); err != nil {
			t.Errorf("replace under unlimited history: %v", err)
		}
	})

	t.Run("replace requires an active file", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		admin := models.Principal{UserID: "user-admin", Admin: true}
		if _, err := e.files.Quarantine(ctx, admin, file.ID, "held"); err != nil {
			t.Fatalf("quarantine: %v", err)
		}

		loc, _ := e.store.Put(ctx, file.ID+"-next", strings.NewReader("zz"), "")
		_, err := e.files.ReplaceContent(ctx, owner(), file.ID, &driveSvc.UploadResult{Locator: loc, Size: 2})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})
}

func TestCopyFile(t *testing.T) {
	ctx := context.Background()

	t.Run("copy references content, fresh history, caller owns", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		if _, err := e.files.ShareFile(ctx, owner(), file.ID, &driveSvc.ShareRequest{
			GranteeID: "user-editor", Permission: models.PermissionEdit,
		}); err != nil {
			t.Fatalf("share: %v", err)
		}
		dst := e.mustCreateFolder(t, owner(), nil, "Dst")

		copied, err := e.files.CopyFile(ctx, owner(), file.ID, &dst.ID)
		if err != nil {
			t.Fatalf("copy: %v", err)
		}
		if copied.ID == file.ID {
			t.Error("copy reused the source identity")
		}
		if copied.Storage.Key != file.Storage.Key {
			t.Errorf("copy storage = %q, want the source reference %q", copied.Storage.Key, file.Storage.Key)
		}
		if copied.CurrentVersion != 1 {
			t.Errorf("copy current_version = %d, want 1", copied.CurrentVersion)
		}
		if len(copied.SharedWith) != 0 {
			t.Errorf("copy carries grants: %+v", copied.SharedWith)
		}

		usage, _ := e.usageRepo.Get(ctx, owner().UserID)
		if usage.StorageUsed != 200 {
			t.Errorf("usage = %d, want both instances counted", usage.StorageUsed)
		}
	})

	t.Run("only active files copy", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		if err := e.files.DeleteFile(ctx, owner(), file.ID, false); err != nil {
			t.Fatalf("trash: %v", err)
		}
		_, err := e.files.CopyFile(ctx, owner(), file.ID, nil)
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})
}

func TestDownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a signed url and records the download", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)

		url, err := e.files.DownloadURL(ctx, owner(), file.ID, time.Minute)
		if err != nil {
			t.Fatalf("download: %v", err)
		}
		if !strings.HasPrefix(url, "https://signed.test/active/") {
			t.Errorf("url = %q", url)
		}
		got, _ := e.fileRepo.GetByID(ctx, file.ID)
		if got.DownloadCount != 1 {
			t.Errorf("download_count = %d, want 1", got.DownloadCount)
		}
	})

	t.Run("deleted file reads as missing", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		if err := e.files.DeleteFile(ctx, owner(), file.ID, false); err != nil {
			t.Fatalf("trash: %v", err)
		}
		_, err := e.files.DownloadURL(ctx, owner(), file.ID, time.Minute)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("quarantined file refuses with state", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		admin := models.Principal{UserID: "user-admin", Admin: true}
		if _, err := e.files.Quarantine(ctx, admin, file.ID, "held"); err != nil {
			t.Fatalf("quarantine: %v", err)
		}
		_, err := e.files.DownloadURL(ctx, owner(), file.ID, time.Minute)
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("view grant suffices", func(t *testing.T) {
		e := newEnv(t)
		file := e.mustUploadFile(t, owner(), nil, "doc.txt", 100)
		if _, err := e.files.ShareFile(ctx, owner(), file.ID, &driveSvc.ShareRequest{
			GranteeID: "user-viewer", Permission: models.PermissionView,
		}); err != nil {
			t.Fatalf("share: %v", err)
		}
		if _, err := e.files.DownloadURL(ctx, models.Principal{UserID: "user-viewer"}, file.ID, 0); err != nil {
			t.Errorf("viewer download: %v", err)
		}
		if _, err := e.files.DownloadURL(ctx, models.Principal{UserID: "user-stranger"}, file.ID, 0); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("stranger download err = %v, want ErrForbidden", err)
		}
	})
}
