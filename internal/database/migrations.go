package database

import (
	"errors"
	"time"

	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeEmptyFolderIDs = "2024-06-01_normalize_empty_folder_ids"
	migrationReleaseOrphanReferences = "2024-06-15_release_orphan_references"
	migrationFoldSearchKeys          = "2024-07-01_fold_search_keys"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeEmptyFolderIDs, apply: normalizeEmptyFolderIDs},
		{name: migrationReleaseOrphanReferences, apply: releaseOrphanReferences},
		{name: migrationFoldSearchKeys, apply: foldSearchKeys},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeEmptyFolderIDs stores "no folder" as NULL only.
func normalizeEmptyFolderIDs(db *gorm.DB) error {
	return db.Model(&notes.Note{}).
		Where("folder_id = ?", "").
		Update("folder_id", nil).Error
}

// releaseOrphanReferences drops note links to folders and tags that no longer exist for the note's owner.
func releaseOrphanReferences(db *gorm.DB) error {
	ownedFolders := db.Model(&notes.Folder{}).Select("id").Where("folders.user_id = notes.user_id")
	if err := db.Model(&notes.Note{}).
		Where("folder_id IS NOT NULL AND folder_id NOT IN (?)", ownedFolders).
		Update("folder_id", nil).Error; err != nil {
		return err
	}

	ownedTags := db.Model(&notes.Tag{}).Select("id").Where("tags.user_id = note_tags.user_id")
	if err := db.Where("tag_id NOT IN (?)", ownedTags).Delete(&notes.NoteTag{}).Error; err != nil {
		return err
	}

	existingNotes := db.Model(&notes.Note{}).Select("id")
	return db.Where("note_id NOT IN (?)", existingNotes).Delete(&notes.NoteTag{}).Error
}

type searchKeySource struct {
	ID     string
	Source string
}

// foldSearchKeys fills search_key for rows written before the column existed.
func foldSearchKeys(db *gorm.DB) error {
	targets := []struct {
		model  any
		column string
	}{
		{model: &notes.Folder{}, column: "name"},
		{model: &notes.Tag{}, column: "name"},
		{model: &notes.Note{}, column: "title"},
	}
	for _, target := range targets {
		var rows []searchKeySource
		if err := db.Model(target.model).
			Select("id", target.column+" AS source").
			Where("search_key = ?", "").
			Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			if err := db.Model(target.model).
				Where("id = ?", row.ID).
				Update("search_key", notes.SearchKey(row.Source)).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
