package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const (
	ownerID      = "owner-1"
	otherOwnerID = "owner-2"
	folderID     = "0190f1a2-7b3c-7d4e-8f50-000000000001"
	tagID        = "0190f1a2-7b3c-7d4e-8f50-000000000002"
	foreignTagID = "0190f1a2-7b3c-7d4e-8f50-000000000003"
)

func openMigratedDatabase(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql database: %v", err)
	}
	testContext.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(append(notes.Models(), &migrationRecord{})...); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func seedNote(testContext *testing.T, database *gorm.DB, id, owner string, folder *string) {
	testContext.Helper()
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	note := notes.Note{ID: id, UserID: owner, Title: id, FolderID: folder, CreatedAt: now, UpdatedAt: now}
	if err := database.Create(&note).Error; err != nil {
		testContext.Fatalf("failed to insert note: %v", err)
	}
}

func TestApplyMigrationsRepairsReferences(testContext *testing.T) {
	database := openMigratedDatabase(testContext)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	if err := database.Create(&notes.Folder{ID: folderID, UserID: ownerID, Name: "Work", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert folder: %v", err)
	}
	if err := database.Create(&notes.Tag{ID: tagID, UserID: ownerID, Name: "urgent", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert tag: %v", err)
	}
	if err := database.Create(&notes.Tag{ID: foreignTagID, UserID: otherOwnerID, Name: "theirs", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert tag: %v", err)
	}

	empty := ""
	valid := folderID
	missing := "0190f1a2-7b3c-7d4e-8f50-00000000ffff"
	seedNote(testContext, database, "note-empty", ownerID, &empty)
	seedNote(testContext, database, "note-valid", ownerID, &valid)
	seedNote(testContext, database, "note-missing", ownerID, &missing)
	seedNote(testContext, database, "note-foreign", otherOwnerID, &valid)

	links := []notes.NoteTag{
		{NoteID: "note-valid", TagID: tagID, UserID: ownerID},
		{NoteID: "note-valid", TagID: foreignTagID, UserID: ownerID},
		{NoteID: "note-gone", TagID: tagID, UserID: ownerID},
	}
	if err := database.Create(&links).Error; err != nil {
		testContext.Fatalf("failed to insert links: %v", err)
	}

	core, logs := observer.New(zap.InfoLevel)
	if err := applyMigrations(database, zap.New(core)); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	expectedFolders := map[string]*string{
		"note-empty":   nil,
		"note-valid":   &valid,
		"note-missing": nil,
		"note-foreign": nil,
	}
	for noteID, want := range expectedFolders {
		var stored notes.Note
		if err := database.Where("id = ?", noteID).Take(&stored).Error; err != nil {
			testContext.Fatalf("failed to reload %s: %v", noteID, err)
		}
		if want == nil && stored.FolderID != nil {
			testContext.Fatalf("expected %s folder to be cleared, got %q", noteID, *stored.FolderID)
		}
		if want != nil && (stored.FolderID == nil || *stored.FolderID != *want) {
			testContext.Fatalf("expected %s folder to be kept", noteID)
		}
	}

	var remaining []notes.NoteTag
	if err := database.Find(&remaining).Error; err != nil {
		testContext.Fatalf("failed to load links: %v", err)
	}
	if len(remaining) != 1 || remaining[0].NoteID != "note-valid" || remaining[0].TagID != tagID {
		testContext.Fatalf("unexpected remaining links: %#v", remaining)
	}

	var records []migrationRecord
	if err := database.Order("name ASC").Find(&records).Error; err != nil {
		testContext.Fatalf("failed to load migration records: %v", err)
	}
	if len(records) != 3 || records[0].Name != migrationNormalizeEmptyFolderIDs || records[0].AppliedAtSeconds == 0 {
		testContext.Fatalf("unexpected migration records: %#v", records)
	}
	if logs.FilterMessage("database migration applied").Len() != 3 {
		testContext.Fatalf("expected three applied migration logs")
	}

	if err := applyMigrations(database, zap.New(core)); err != nil {
		testContext.Fatalf("failed to re-run migrations: %v", err)
	}
	if logs.FilterMessage("database migration applied").Len() != 3 {
		testContext.Fatalf("expected migrations to be applied only once")
	}
}

func TestApplyMigrationsFoldsSearchKeys(testContext *testing.T) {
	database := openMigratedDatabase(testContext)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	if err := database.Create(&notes.Folder{ID: folderID, UserID: ownerID, Name: "Étude", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert folder: %v", err)
	}
	if err := database.Create(&notes.Tag{ID: tagID, UserID: ownerID, Name: "ÜBER", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert tag: %v", err)
	}
	seedNote(testContext, database, "Ça Va", ownerID, nil)

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var folder notes.Folder
	if err := database.Where("id = ?", folderID).Take(&folder).Error; err != nil {
		testContext.Fatalf("failed to reload folder: %v", err)
	}
	if folder.SearchKey != "étude" {
		testContext.Fatalf("unexpected folder search key %q", folder.SearchKey)
	}
	var tag notes.Tag
	if err := database.Where("id = ?", tagID).Take(&tag).Error; err != nil {
		testContext.Fatalf("failed to reload tag: %v", err)
	}
	if tag.SearchKey != "über" {
		testContext.Fatalf("unexpected tag search key %q", tag.SearchKey)
	}
	var note notes.Note
	if err := database.Where("id = ?", "Ça Va").Take(&note).Error; err != nil {
		testContext.Fatalf("failed to reload note: %v", err)
	}
	if note.SearchKey != "ça va" {
		testContext.Fatalf("unexpected note search key %q", note.SearchKey)
	}
}
