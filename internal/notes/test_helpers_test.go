package notes

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testStores struct {
	db      *gorm.DB
	clock   *steppingClock
	folders *FolderStore
	tags    *TagStore
	notes   *NoteStore
}

// steppingClock advances by step on every read. A zero step models a stalled clock.
type steppingClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	value := c.current
	c.current = c.current.Add(c.step)
	return value
}

func (c *steppingClock) Stall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = 0
}

// Rewind moves the clock back by d, as after an NTP correction.
func (c *steppingClock) Rewind(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(-d)
}

type failingIDProvider struct{}

func (failingIDProvider) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

func openTestDatabase(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestStores(t testing.TB) *testStores {
	t.Helper()
	db := openTestDatabase(t)
	clock := &steppingClock{
		current: time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC),
		step:    time.Second,
	}
	cfg := StoreConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: NewUUIDProvider(),
	}

	folders, err := NewFolderStore(cfg)
	if err != nil {
		t.Fatalf("failed to construct folder store: %v", err)
	}
	tags, err := NewTagStore(cfg)
	if err != nil {
		t.Fatalf("failed to construct tag store: %v", err)
	}
	noteStore, err := NewNoteStore(cfg)
	if err != nil {
		t.Fatalf("failed to construct note store: %v", err)
	}
	return &testStores{db: db, clock: clock, folders: folders, tags: tags, notes: noteStore}
}

func mustUserID(t testing.TB, value string) UserID {
	t.Helper()
	id, err := NewUserID(value)
	if err != nil {
		t.Fatalf("unexpected user id error: %v", err)
	}
	return id
}

func newOwner(t testing.TB) UserID {
	t.Helper()
	return mustUserID(t, uuid.NewString())
}

func stringPtr(value string) *string {
	return &value
}

func tagsPtr(values ...string) *[]string {
	if values == nil {
		values = []string{}
	}
	return &values
}
