package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps unexpected storage failures with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	reasonMissingDatabase   = "missing_database"
	reasonMissingIDProvider = "missing_id_provider"
	reasonQueryFailed       = "query_failed"
	reasonInsertFailed      = "insert_failed"
	reasonUpdateFailed      = "update_failed"
	reasonDeleteFailed      = "delete_failed"
	reasonIDGeneration      = "id_generation_failed"
	reasonReferenceFailed   = "reference_check_failed"
	reasonReleaseFailed     = "reference_release_failed"
)

const queryOwnedID = "user_id = ? AND id = ?"

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// StoreConfig carries the collaborators shared by every store.
type StoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type store struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
	refs       *references
}

func newStore(operation string, cfg StoreConfig) (store, error) {
	if cfg.Database == nil {
		return store{}, newServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return store{}, newServiceError(operation, reasonMissingIDProvider, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return store{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		refs:       &references{},
	}, nil
}

// ready guards zero-value stores so handlers can surface a coded failure.
func (s *store) ready(operation string) error {
	if s.db == nil {
		s.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(operation, reasonMissingIDProvider, errMissingIDProvider)
		return newServiceError(operation, reasonMissingIDProvider, errMissingIDProvider)
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.refs == nil {
		s.refs = &references{}
	}
	return nil
}

// now returns the store clock in UTC at the precision every supported database preserves.
func (s *store) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt keeps updatedAt strictly increasing even when the clock stalls or steps back.
func nextUpdatedAt(now, previous time.Time) time.Time {
	if now.After(previous) {
		return now
	}
	return previous.Add(time.Microsecond)
}

func (s *store) newID(operation string, fields ...zap.Field) (string, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return "", s.fail(operation, reasonIDGeneration, err, fields...)
	}
	return id, nil
}

// fail logs and wraps an unexpected error.
func (s *store) fail(operation, reason string, err error, fields ...zap.Field) error {
	s.logError(operation, reason, err, fields...)
	return newServiceError(operation, reason, err)
}

func (s *store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes store error", attrs...)
}

func (s *store) loggerOrDefault() *zap.Logger {
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchKey case-folds value the way the search_key columns are stored.
// LOWER in sqlite only folds ASCII, so folding happens here for every driver.
func SearchKey(value string) string {
	return cases.Fold().String(value)
}

// containsPattern builds a LIKE pattern over search_key that treats term literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(SearchKey(term)) + "%"
}

const searchKeyClause = `search_key LIKE ? ESCAPE '\'`
