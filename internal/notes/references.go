package notes

import (
	"context"
	"sort"
	"time"

	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/validation"
	"gorm.io/gorm"
)

// references keeps note links to folders and tags consistent. Every method runs on the
// caller's transaction so a check or release commits together with the triggering write.
type references struct{}

// checkFolder confirms that folderID names a folder owned by userID.
func (r *references) checkFolder(ctx context.Context, tx *gorm.DB, userID UserID, folderID string) error {
	if !validation.IsValidIdentifier(folderID) {
		return &apperr.InvalidReferenceError{Field: fieldFolderID}
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&Folder{}).Where(queryOwnedID, userID.String(), folderID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &apperr.InvalidReferenceError{Field: fieldFolderID}
	}
	return nil
}

// checkTags confirms that every id names a tag owned by userID and returns the sorted distinct set.
func (r *references) checkTags(ctx context.Context, tx *gorm.DB, userID UserID, tagIDs []string) ([]string, error) {
	distinct := make([]string, 0, len(tagIDs))
	seen := make(map[string]struct{}, len(tagIDs))
	for _, tagID := range tagIDs {
		if !validation.IsValidIdentifier(tagID) {
			return nil, &apperr.InvalidReferenceError{Field: fieldTags}
		}
		if _, ok := seen[tagID]; ok {
			continue
		}
		seen[tagID] = struct{}{}
		distinct = append(distinct, tagID)
	}
	sort.Strings(distinct)
	if len(distinct) == 0 {
		return distinct, nil
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&Tag{}).
		Where("user_id = ? AND id IN ?", userID.String(), distinct).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if int(count) != len(distinct) {
		return nil, &apperr.InvalidReferenceError{Field: fieldTags}
	}
	return distinct, nil
}

// releaseFolder detaches every note of userID from folderID and returns the affected note ids.
func (r *references) releaseFolder(ctx context.Context, tx *gorm.DB, userID UserID, folderID string, at time.Time) ([]string, error) {
	var noteIDs []string
	if err := tx.WithContext(ctx).Model(&Note{}).
		Where("user_id = ? AND folder_id = ?", userID.String(), folderID).
		Order("id ASC").
		Pluck("id", &noteIDs).Error; err != nil {
		return nil, err
	}
	if len(noteIDs) == 0 {
		return noteIDs, nil
	}
	if err := tx.WithContext(ctx).Model(&Note{}).
		Where("user_id = ? AND id IN ?", userID.String(), noteIDs).
		Update("folder_id", nil).Error; err != nil {
		return nil, err
	}
	if err := r.touchNotes(ctx, tx, userID, noteIDs, at); err != nil {
		return nil, err
	}
	return noteIDs, nil
}

// releaseTag removes tagID from every note of userID and returns the affected note ids.
func (r *references) releaseTag(ctx context.Context, tx *gorm.DB, userID UserID, tagID string, at time.Time) ([]string, error) {
	var noteIDs []string
	if err := tx.WithContext(ctx).Model(&NoteTag{}).
		Where("user_id = ? AND tag_id = ?", userID.String(), tagID).
		Order("note_id ASC").
		Pluck("note_id", &noteIDs).Error; err != nil {
		return nil, err
	}
	if len(noteIDs) == 0 {
		return noteIDs, nil
	}
	if err := tx.WithContext(ctx).
		Where("user_id = ? AND tag_id = ?", userID.String(), tagID).
		Delete(&NoteTag{}).Error; err != nil {
		return nil, err
	}
	if err := r.touchNotes(ctx, tx, userID, noteIDs, at); err != nil {
		return nil, err
	}
	return noteIDs, nil
}

type noteStamp struct {
	ID        string
	UpdatedAt time.Time
}

// touchNotes moves updated_at of every note in noteIDs to at, or just past its current
// value when the clock has not moved beyond it.
func (r *references) touchNotes(ctx context.Context, tx *gorm.DB, userID UserID, noteIDs []string, at time.Time) error {
	var stamps []noteStamp
	if err := tx.WithContext(ctx).Model(&Note{}).
		Select("id", "updated_at").
		Where("user_id = ? AND id IN ?", userID.String(), noteIDs).
		Find(&stamps).Error; err != nil {
		return err
	}
	for _, stamp := range stamps {
		if err := tx.WithContext(ctx).Model(&Note{}).
			Where(queryOwnedID, userID.String(), stamp.ID).
			Update("updated_at", nextUpdatedAt(at, stamp.UpdatedAt)).Error; err != nil {
			return err
		}
	}
	return nil
}

// replaceNoteTags swaps the tag set of noteID for tagIDs.
func (r *references) replaceNoteTags(ctx context.Context, tx *gorm.DB, userID UserID, noteID string, tagIDs []string) error {
	if err := tx.WithContext(ctx).Where("note_id = ?", noteID).Delete(&NoteTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]NoteTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		links = append(links, NoteTag{NoteID: noteID, TagID: tagID, UserID: userID.String()})
	}
	return tx.WithContext(ctx).Create(&links).Error
}

// loadTags attaches the sorted tag ids of each note. Notes without tags receive an empty slice.
func (r *references) loadTags(ctx context.Context, db *gorm.DB, userID UserID, notes []Note) error {
	if len(notes) == 0 {
		return nil
	}
	noteIDs := make([]string, 0, len(notes))
	for index := range notes {
		noteIDs = append(noteIDs, notes[index].ID)
	}

	var links []NoteTag
	if err := db.WithContext(ctx).
		Where("user_id = ? AND note_id IN ?", userID.String(), noteIDs).
		Order("note_id ASC").Order("tag_id ASC").
		Find(&links).Error; err != nil {
		return err
	}

	byNote := make(map[string][]string, len(notes))
	for _, link := range links {
		byNote[link.NoteID] = append(byNote[link.NoteID], link.TagID)
	}
	for index := range notes {
		tags := byNote[notes[index].ID]
		if tags == nil {
			tags = []string{}
		}
		notes[index].Tags = tags
	}
	return nil
}
