package notes

import (
	"context"
	"strings"

	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/dbutil"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opFolderStoreNew = "notes.folder_store.new"
	opListFolders    = "notes.list_folders"
	opGetFolder      = "notes.get_folder"
	opCreateFolder   = "notes.create_folder"
	opUpdateFolder   = "notes.update_folder"
	opDeleteFolder   = "notes.delete_folder"
)

// DeleteResult reports the notes touched by a cascading delete.
type DeleteResult struct {
	AffectedNoteIDs []string
}

// FolderStore manages folders scoped to their owner.
type FolderStore struct {
	store
}

// NewFolderStore validates cfg and constructs a FolderStore.
func NewFolderStore(cfg StoreConfig) (*FolderStore, error) {
	base, err := newStore(opFolderStoreNew, cfg)
	if err != nil {
		return nil, err
	}
	return &FolderStore{store: base}, nil
}

// List returns the owner's folders sorted by name, optionally filtered by a name substring.
func (s *FolderStore) List(ctx context.Context, userID UserID, filter ListFilter) ([]Folder, error) {
	if err := s.ready(opListFolders); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if filter.SearchTerm != "" {
		query = query.Where(searchKeyClause, containsPattern(filter.SearchTerm))
	}
	folders := []Folder{}
	if err := query.Order("name ASC").Order("id ASC").Find(&folders).Error; err != nil {
		return nil, s.fail(opListFolders, reasonQueryFailed, err, zap.String("user_id", userID.String()))
	}
	return folders, nil
}

// Get returns one folder owned by userID.
func (s *FolderStore) Get(ctx context.Context, userID UserID, rawID string) (Folder, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return Folder{}, err
	}
	if err := s.ready(opGetFolder); err != nil {
		return Folder{}, err
	}
	var folder Folder
	if err := s.db.WithContext(ctx).Where(queryOwnedID, userID.String(), id).Take(&folder).Error; err != nil {
		if dbutil.IsNotFound(err) {
			return Folder{}, &apperr.NotFoundError{Resource: resourceFolder, ID: id}
		}
		return Folder{}, s.fail(opGetFolder, reasonQueryFailed, err,
			zap.String("user_id", userID.String()),
			zap.String("folder_id", id))
	}
	return folder, nil
}

// Create inserts a folder. Names must be unique per owner.
func (s *FolderStore) Create(ctx context.Context, userID UserID, input NameInput) (Folder, error) {
	if err := validation.RequireField(fieldName, input.Name); err != nil {
		return Folder{}, err
	}
	if err := s.ready(opCreateFolder); err != nil {
		return Folder{}, err
	}
	id, err := s.newID(opCreateFolder, zap.String("user_id", userID.String()))
	if err != nil {
		return Folder{}, err
	}
	now := s.now()
	folder := Folder{
		ID:        id,
		UserID:    userID.String(),
		Name:      strings.TrimSpace(*input.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	folder.SearchKey = SearchKey(folder.Name)
	if err := s.db.WithContext(ctx).Create(&folder).Error; err != nil {
		if dbutil.IsDuplicateKey(err) {
			return Folder{}, &apperr.ConflictError{Resource: "folder name"}
		}
		return Folder{}, s.fail(opCreateFolder, reasonInsertFailed, err, zap.String("user_id", userID.String()))
	}
	return folder, nil
}

// Update renames a folder owned by userID.
func (s *FolderStore) Update(ctx context.Context, userID UserID, rawID string, input NameInput) (Folder, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return Folder{}, err
	}
	if err := validation.RequireField(fieldName, input.Name); err != nil {
		return Folder{}, err
	}
	if err := s.ready(opUpdateFolder); err != nil {
		return Folder{}, err
	}

	var updated Folder
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Folder
		if err := tx.Where(queryOwnedID, userID.String(), id).Take(&existing).Error; err != nil {
			if dbutil.IsNotFound(err) {
				return &apperr.NotFoundError{Resource: resourceFolder, ID: id}
			}
			return s.fail(opUpdateFolder, reasonQueryFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("folder_id", id))
		}
		existing.Name = strings.TrimSpace(*input.Name)
		existing.SearchKey = SearchKey(existing.Name)
		existing.UpdatedAt = nextUpdatedAt(s.now(), existing.UpdatedAt)
		if err := tx.Model(&Folder{}).
			Where(queryOwnedID, userID.String(), id).
			Updates(map[string]any{"name": existing.Name, "search_key": existing.SearchKey, "updated_at": existing.UpdatedAt}).Error; err != nil {
			if dbutil.IsDuplicateKey(err) {
				return &apperr.ConflictError{Resource: "folder name"}
			}
			return s.fail(opUpdateFolder, reasonUpdateFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("folder_id", id))
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Folder{}, txErr
	}
	return updated, nil
}

// Delete removes a folder and detaches it from every note in the same transaction.
func (s *FolderStore) Delete(ctx context.Context, userID UserID, rawID string) (DeleteResult, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.ready(opDeleteFolder); err != nil {
		return DeleteResult{}, err
	}

	result := DeleteResult{AffectedNoteIDs: []string{}}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deletion := tx.Where(queryOwnedID, userID.String(), id).Delete(&Folder{})
		if deletion.Error != nil {
			return s.fail(opDeleteFolder, reasonDeleteFailed, deletion.Error,
				zap.String("user_id", userID.String()),
				zap.String("folder_id", id))
		}
		if deletion.RowsAffected == 0 {
			return &apperr.NotFoundError{Resource: resourceFolder, ID: id}
		}
		noteIDs, err := s.refs.releaseFolder(ctx, tx, userID, id, s.now())
		if err != nil {
			return s.fail(opDeleteFolder, reasonReleaseFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("folder_id", id))
		}
		result.AffectedNoteIDs = noteIDs
		return nil
	})
	if txErr != nil {
		return DeleteResult{}, txErr
	}
	return result, nil
}
