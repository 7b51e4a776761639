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
	opTagStoreNew = "notes.tag_store.new"
	opListTags    = "notes.list_tags"
	opGetTag      = "notes.get_tag"
	opCreateTag   = "notes.create_tag"
	opUpdateTag   = "notes.update_tag"
	opDeleteTag   = "notes.delete_tag"
)

// TagStore manages tags scoped to their owner.
type TagStore struct {
	store
}

// NewTagStore validates cfg and constructs a TagStore.
func NewTagStore(cfg StoreConfig) (*TagStore, error) {
	base, err := newStore(opTagStoreNew, cfg)
	if err != nil {
		return nil, err
	}
	return &TagStore{store: base}, nil
}

// List returns the owner's tags sorted by name, optionally filtered by a name substring.
func (s *TagStore) List(ctx context.Context, userID UserID, filter ListFilter) ([]Tag, error) {
	if err := s.ready(opListTags); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if filter.SearchTerm != "" {
		query = query.Where(searchKeyClause, containsPattern(filter.SearchTerm))
	}
	tags := []Tag{}
	if err := query.Order("name ASC").Order("id ASC").Find(&tags).Error; err != nil {
		return nil, s.fail(opListTags, reasonQueryFailed, err, zap.String("user_id", userID.String()))
	}
	return tags, nil
}

// Get returns one tag owned by userID.
func (s *TagStore) Get(ctx context.Context, userID UserID, rawID string) (Tag, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return Tag{}, err
	}
	if err := s.ready(opGetTag); err != nil {
		return Tag{}, err
	}
	var tag Tag
	if err := s.db.WithContext(ctx).Where(queryOwnedID, userID.String(), id).Take(&tag).Error; err != nil {
		if dbutil.IsNotFound(err) {
			return Tag{}, &apperr.NotFoundError{Resource: resourceTag, ID: id}
		}
		return Tag{}, s.fail(opGetTag, reasonQueryFailed, err,
			zap.String("user_id", userID.String()),
			zap.String("tag_id", id))
	}
	return tag, nil
}

// Create inserts a tag. Names must be unique per owner.
func (s *TagStore) Create(ctx context.Context, userID UserID, input NameInput) (Tag, error) {
	if err := validation.RequireField(fieldName, input.Name); err != nil {
		return Tag{}, err
	}
	if err := s.ready(opCreateTag); err != nil {
		return Tag{}, err
	}
	id, err := s.newID(opCreateTag, zap.String("user_id", userID.String()))
	if err != nil {
		return Tag{}, err
	}
	now := s.now()
	tag := Tag{
		ID:        id,
		UserID:    userID.String(),
		Name:      strings.TrimSpace(*input.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	tag.SearchKey = SearchKey(tag.Name)
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if dbutil.IsDuplicateKey(err) {
			return Tag{}, &apperr.ConflictError{Resource: "tag name"}
		}
		return Tag{}, s.fail(opCreateTag, reasonInsertFailed, err, zap.String("user_id", userID.String()))
	}
	return tag, nil
}

// Update renames a tag owned by userID.
func (s *TagStore) Update(ctx context.Context, userID UserID, rawID string, input NameInput) (Tag, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return Tag{}, err
	}
	if err := validation.RequireField(fieldName, input.Name); err != nil {
		return Tag{}, err
	}
	if err := s.ready(opUpdateTag); err != nil {
		return Tag{}, err
	}

	var updated Tag
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Tag
		if err := tx.Where(queryOwnedID, userID.String(), id).Take(&existing).Error; err != nil {
			if dbutil.IsNotFound(err) {
				return &apperr.NotFoundError{Resource: resourceTag, ID: id}
			}
			return s.fail(opUpdateTag, reasonQueryFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("tag_id", id))
		}
		existing.Name = strings.TrimSpace(*input.Name)
		existing.SearchKey = SearchKey(existing.Name)
		existing.UpdatedAt = nextUpdatedAt(s.now(), existing.UpdatedAt)
		if err := tx.Model(&Tag{}).
			Where(queryOwnedID, userID.String(), id).
			Updates(map[string]any{"name": existing.Name, "search_key": existing.SearchKey, "updated_at": existing.UpdatedAt}).Error; err != nil {
			if dbutil.IsDuplicateKey(err) {
				return &apperr.ConflictError{Resource: "tag name"}
			}
			return s.fail(opUpdateTag, reasonUpdateFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("tag_id", id))
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Tag{}, txErr
	}
	return updated, nil
}

// Delete removes a tag and pulls it from every note in the same transaction.
func (s *TagStore) Delete(ctx context.Context, userID UserID, rawID string) (DeleteResult, error) {
	id, err := parseEntityID(fieldID, rawID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.ready(opDeleteTag); err != nil {
		return DeleteResult{}, err
	}

	result := DeleteResult{AffectedNoteIDs: []string{}}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deletion := tx.Where(queryOwnedID, userID.String(), id).Delete(&Tag{})
		if deletion.Error != nil {
			return s.fail(opDeleteTag, reasonDeleteFailed, deletion.Error,
				zap.String("user_id", userID.String()),
				zap.String("tag_id", id))
		}
		if deletion.RowsAffected == 0 {
			return &apperr.NotFoundError{Resource: resourceTag, ID: id}
		}
		noteIDs, err := s.refs.releaseTag(ctx, tx, userID, id, s.now())
		if err != nil {
			return s.fail(opDeleteTag, reasonReleaseFailed, err,
				zap.String("user_id", userID.String()),
				zap.String("tag_id", id))
		}
		result.AffectedNoteIDs = noteIDs
		return nil
	})
	if txErr != nil {
		return DeleteResult{}, txErr
	}
	return result, nil
}
