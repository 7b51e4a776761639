package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/validation"
)

const maxIdentifierLength = 190

const (
	resourceFolder = "folder"
	resourceTag    = "tag"
	resourceNote   = "note"

	fieldID       = "id"
	fieldName     = "name"
	fieldTitle    = "title"
	fieldFolderID = "folderId"
	fieldTagID    = "tagId"
	fieldTags     = "tags"
)

var (
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("notes: invalid user id")
)

// UserID represents a validated owner identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// parseEntityID rejects identifiers that fail the format check before any query runs.
func parseEntityID(field, rawInput string) (string, error) {
	if !validation.IsValidIdentifier(rawInput) {
		return "", &apperr.MalformedIDError{Field: field}
	}
	return rawInput, nil
}

// Folder groups notes for a single owner. Names are unique per owner.
type Folder struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_folders_user_name,priority:1" json:"userId"`
	Name      string    `gorm:"column:name;size:190;not null;uniqueIndex:idx_folders_user_name,priority:2" json:"name"`
	SearchKey string    `gorm:"column:search_key;type:text;not null;default:''" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Folder) TableName() string {
	return "folders"
}

// Tag labels notes for a single owner. Names are unique per owner.
type Tag struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_tags_user_name,priority:1" json:"userId"`
	Name      string    `gorm:"column:name;size:190;not null;uniqueIndex:idx_tags_user_name,priority:2" json:"name"`
	SearchKey string    `gorm:"column:search_key;type:text;not null;default:''" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}

// Note is a titled text entry with an optional folder and a set of tags.
// Tags are persisted as NoteTag rows and attached after loading.
type Note struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;index:idx_notes_user_updated,priority:1" json:"userId"`
	Title     string    `gorm:"column:title;size:512;not null" json:"title"`
	SearchKey string    `gorm:"column:search_key;type:text;not null;default:''" json:"-"`
	Content   string    `gorm:"column:content;type:text;not null;default:''" json:"content"`
	FolderID  *string   `gorm:"column:folder_id;size:36;index" json:"folderId,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false;index:idx_notes_user_updated,priority:2" json:"updatedAt"`
	Tags      []string  `gorm:"-" json:"tags"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// NoteTag links a note to one of its owner's tags.
type NoteTag struct {
	NoteID string `gorm:"column:note_id;primaryKey;size:36;not null"`
	TagID  string `gorm:"column:tag_id;primaryKey;size:36;not null;index"`
	UserID string `gorm:"column:user_id;size:190;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (NoteTag) TableName() string {
	return "note_tags"
}

// Models lists every persisted type owned by this package, in migration order.
func Models() []any {
	return []any{&Folder{}, &Tag{}, &Note{}, &NoteTag{}}
}

// ListFilter narrows folder and tag listings.
type ListFilter struct {
	SearchTerm string
}

// NoteFilter narrows note listings. Empty fields are ignored.
type NoteFilter struct {
	SearchTerm string
	FolderID   string
	TagID      string
}

// NameInput carries the writable field of a folder or tag.
type NameInput struct {
	Name *string
}

// NoteInput carries the writable fields of a note. A nil field is left unchanged on update;
// an empty FolderID clears the folder and a non-nil Tags replaces the whole set.
type NoteInput struct {
	Title    *string
	Content  *string
	FolderID *string
	Tags     *[]string
}
