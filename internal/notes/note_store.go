package notes

import (
	"context"
	"errors"
	"strings"

	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/dbutil"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opNoteStoreNew = "notes.note_store.new"
	opListNotes    = "notes.list_notes"
	opGetNote      = "notes.get_note"
	opCreateNote   = "notes.create_note"
	opUpdateNote   = "notes.update_note"
	opDeleteNote   = "notes.delete_note"
)

// NoteStore manages notes scoped to their owner.
type NoteStore struct {
	store
}

// NewNoteStore validates cfg and constructs a NoteStore.
func NewNoteStore(cfg StoreConfig) (*NoteStore, error) {
	base, err := newStore(opNoteStoreNew, cfg)
	if err != nil {
		return nil, err
	}
	return &NoteStore{store: base}, nil
}

// List returns the owner's notes, most recently updated first.
func (s *NoteStore) List(ctx context.Context, userID UserID, filter NoteFilter) ([]Note, error) {
	if filter.FolderID != "" {
		if _, err := parseEntityID(fieldFolderID, filter.FolderID); err != nil {
			return nil, err
		}
	}
	if filter.TagID != "" {
		if _, err := parseEntityID(fieldTagID, filter.TagID); err != nil {
			return nil, err
		}
	}
	if err := s.ready(opListNotes); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if filter.SearchTerm != "" {
		query = query.Where(searchKeyClause, containsPattern(filter.SearchTerm))
	}
	if filter.FolderID != "" {
		query = query.Where("folder_id = ?", filter.FolderID)
	}
	if filter.TagID != "" {
		tagged := s.db.WithContext(ctx).Model(&NoteTag{}).
			Select("note_id").
			Where("user_id = ? AND tag_id = ?", userID.String(), filter.TagID)
		query = query.Where("id IN (?)", tagged)
	}

	notes := []Note{}
	if err := query.Order("updated_at DESC").Order("id DESC").Find(&notes).Error; err != nil {
		return nil, s.fail(opListNotes, reasonQueryFailed, err, zap.String("user_id", userID.String()))
	}
	if err := s.refs.loadTags(ctx, s.db, userID, notes); err != nil {
		return nil, s.fail(opListNotes, reasonQueryFailed, err, zap.String("user_id", userID.String()))
	}
	return notes, nil
}

// Get returns one note owned by userID with its tags attached.
func (s *NoteStore) Get(ctx context.Context, userID UserID, rawID string) (Note, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return Note{}, err
	}
	if err := s.ready(opGetNote); err != nil {
		return Note{}, err
	}
	note, err := s.loadOwned(ctx, s.db, opGetNote, userID, id)
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

// Create inserts a note after validating its folder and tag references.
func (s *NoteStore) Create(ctx context.Context, userID UserID, input NoteInput) (Note, error) {
	if err := validation.RequireField(fieldTitle, input.Title); err != nil {
		return Note{}, err
	}
	if err := s.ready(opCreateNote); err != nil {
		return Note{}, err
	}
	id, err := s.newID(opCreateNote, zap.String("user_id", userID.String()))
	if err != nil {
		return Note{}, err
	}

	now := s.now()
	note := Note{
		ID:        id,
		UserID:    userID.String(),
		Title:     strings.TrimSpace(*input.Title),
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      []string{},
	}
	note.SearchKey = SearchKey(note.Title)
	if input.Content != nil {
		note.Content = *input.Content
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.FolderID != nil && *input.FolderID != "" {
			if err := s.refs.checkFolder(ctx, tx, userID, *input.FolderID); err != nil {
				return s.referenceFailure(opCreateNote, userID, err)
			}
			folderID := *input.FolderID
			note.FolderID = &folderID
		}
		if input.Tags != nil {
			tags, err := s.refs.checkTags(ctx, tx, userID, *input.Tags)
			if err != nil {
				return s.referenceFailure(opCreateNote, userID, err)
			}
			note.Tags = tags
		}
		if err := tx.Create(&note).Error; err != nil {
			return s.fail(opCreateNote, reasonInsertFailed, err, zap.String("user_id", userID.String()))
		}
		if err := s.refs.replaceNoteTags(ctx, tx, userID, note.ID, note.Tags); err != nil {
			return s.fail(opCreateNote, reasonInsertFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("note_id", note.ID))
		}
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}
	return note, nil
}

// Update applies the fields present in input to a note owned by userID.
func (s *NoteStore) Update(ctx context.Context, userID UserID, rawID string, input NoteInput) (Note, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return Note{}, err
	}
	if input.Title != nil {
		if err := validation.RequireField(fieldTitle, input.Title); err != nil {
			return Note{}, err
		}
	}
	if err := s.ready(opUpdateNote); err != nil {
		return Note{}, err
	}

	var updated Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadOwned(ctx, tx, opUpdateNote, userID, id)
		if err != nil {
			return err
		}

		changes := map[string]any{}
		if input.Title != nil {
			existing.Title = strings.TrimSpace(*input.Title)
			existing.SearchKey = SearchKey(existing.Title)
			changes["title"] = existing.Title
			changes["search_key"] = existing.SearchKey
		}
		if input.Content != nil {
			existing.Content = *input.Content
			changes["content"] = existing.Content
		}
		if input.FolderID != nil {
			if *input.FolderID == "" {
				existing.FolderID = nil
			} else {
				if err := s.refs.checkFolder(ctx, tx, userID, *input.FolderID); err != nil {
					return s.referenceFailure(opUpdateNote, userID, err)
				}
				folderID := *input.FolderID
				existing.FolderID = &folderID
			}
			changes["folder_id"] = existing.FolderID
		}
		if input.Tags != nil {
			tags, err := s.refs.checkTags(ctx, tx, userID, *input.Tags)
			if err != nil {
				return s.referenceFailure(opUpdateNote, userID, err)
			}
			if err := s.refs.replaceNoteTags(ctx, tx, userID, id, tags); err != nil {
				return s.fail(opUpdateNote, reasonUpdateFailed, err,
					zap.String("user_id", userID.String()),
					zap.String("note_id", id))
			}
			existing.Tags = tags
		}

		existing.UpdatedAt = nextUpdatedAt(s.now(), existing.UpdatedAt)
		changes["updated_at"] = existing.UpdatedAt
		if err := tx.Model(&Note{}).Where(queryOwnedID, userID.String(), id).Updates(changes).Error; err != nil {
			return s.fail(opUpdateNote, reasonUpdateFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("note_id", id))
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}
	return updated, nil
}

// Delete removes a note owned by userID together with its tag links.
func (s *NoteStore) Delete(ctx context.Context, userID UserID, rawID string) error {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return err
	}
	if err := s.ready(opDeleteNote); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deletion := tx.Where(queryOwnedID, userID.String(), id).Delete(&Note{})
		if deletion.Error != nil {
			return s.fail(opDeleteNote, reasonDeleteFailed, deletion.Error,
				zap.String("user_id", userID.String()),
				zap.String("note_id", id))
		}
		if deletion.RowsAffected == 0 {
			return &apperr.NotFoundError{Resource: resourceNote, ID: id}
		}
		if err := tx.Where("note_id = ?", id).Delete(&NoteTag{}).Error; err != nil {
			return s.fail(opDeleteNote, reasonDeleteFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("note_id", id))
		}
		return nil
	})
}

func (s *NoteStore) loadOwned(ctx context.Context, db *gorm.DB, operation string, userID UserID, id string) (Note, error) {
	var note Note
	if err := db.WithContext(ctx).Where(queryOwnedID, userID.String(), id).Take(&note).Error; err != nil {
		if dbutil.IsNotFound(err) {
			return Note{}, &apperr.NotFoundError{Resource: resourceNote, ID: id}
		}
		return Note{}, s.fail(operation, reasonQueryFailed, err,
			zap.String("user_id", userID.String()),
			zap.String("note_id", id))
	}
	loaded := []Note{note}
	if err := s.refs.loadTags(ctx, db, userID, loaded); err != nil {
		return Note{}, s.fail(operation, reasonQueryFailed, err,
			zap.String("user_id", userID.String()),
			zap.String("note_id", id))
	}
	return loaded[0], nil
}

// referenceFailure passes domain reference errors through and wraps storage failures.
func (s *NoteStore) referenceFailure(operation string, userID UserID, err error) error {
	var invalid *apperr.InvalidReferenceError
	if errors.As(err, &invalid) {
		return err
	}
	return s.fail(operation, reasonReferenceFailed, err, zap.String("user_id", userID.String()))
}

