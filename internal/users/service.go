package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/dbutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingHasher     = errors.New("password hasher is required")
	noOpLogger           = zap.NewNop()
)

const invalidCredentialsMessage = "Incorrect username or password"

const (
	opServiceNew   = "users.service.new"
	opRegister     = "users.register"
	opAuthenticate = "users.authenticate"
	opGetUser      = "users.get"
)

// ServiceError wraps unexpected failures with a stable operation.reason code.
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

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Hasher     PasswordHasher
	Logger     *zap.Logger
}

// Service registers and authenticates user accounts.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
	hasher     PasswordHasher
	logger     *zap.Logger
	cache      sync.Map
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Hasher == nil {
		return nil, newServiceError(opServiceNew, "missing_hasher", errMissingHasher)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
		hasher:     cfg.Hasher,
		logger:     logger,
	}, nil
}

// Register creates an account. Username uniqueness is enforced by the database.
func (s *Service) Register(ctx context.Context, input RegistrationInput) (User, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return User{}, s.fail(opRegister, "id_generation_failed", err)
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, s.fail(opRegister, "hash_failed", err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	user := User{
		ID:           id,
		Fullname:     strings.TrimSpace(input.Fullname),
		Username:     input.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if dbutil.IsDuplicateKey(err) {
			return User{}, &apperr.ConflictError{Resource: "username"}
		}
		return User{}, s.fail(opRegister, "insert_failed", err, zap.String("username", input.Username))
	}
	s.cache.Store(user.ID, user)
	return user, nil
}

// Authenticate verifies credentials. Unknown users and wrong passwords are indistinguishable to callers.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if dbutil.IsNotFound(err) {
		return User{}, &apperr.AuthenticationError{Message: invalidCredentialsMessage}
	}
	if err != nil {
		return User{}, s.fail(opAuthenticate, "query_failed", err, zap.String("username", username))
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return User{}, &apperr.AuthenticationError{Message: invalidCredentialsMessage}
	}
	s.cache.Store(user.ID, user)
	return user, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if cached, ok := s.cache.Load(id); ok {
		if user, ok := cached.(User); ok {
			return user, nil
		}
	}
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if dbutil.IsNotFound(err) {
		return User{}, &apperr.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return User{}, s.fail(opGetUser, "query_failed", err, zap.String("user_id", id))
	}
	s.cache.Store(user.ID, user)
	return user, nil
}

func (s *Service) fail(operation, reason string, err error, fields ...zap.Field) error {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}
	attrs = append(attrs, fields...)
	s.logger.Error("users service error", attrs...)
	return newServiceError(operation, reason, err)
}
