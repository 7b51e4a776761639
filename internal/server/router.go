package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/auth"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/users"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "noteful_user_id"
	principalContextKey = "noteful_principal"
	accessTokenQueryKey = "access_token"
	apiPrefix           = "/api"
)

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingFolderService = errors.New("folder service dependency required")
	errMissingTagService    = errors.New("tag service dependency required")
	errMissingNoteService   = errors.New("note service dependency required")
	errMissingAccounts      = errors.New("account service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates access tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, principal auth.Principal) (string, int64, error)
	ValidateToken(token string) (auth.Principal, error)
}

// NamedService is the contract shared by the folder and tag stores.
type NamedService[T any] interface {
	List(ctx context.Context, userID notes.UserID, filter notes.ListFilter) ([]T, error)
	Get(ctx context.Context, userID notes.UserID, id string) (T, error)
	Create(ctx context.Context, userID notes.UserID, input notes.NameInput) (T, error)
	Update(ctx context.Context, userID notes.UserID, id string, input notes.NameInput) (T, error)
	Delete(ctx context.Context, userID notes.UserID, id string) (notes.DeleteResult, error)
}

// NoteService is the contract of the note store.
type NoteService interface {
	List(ctx context.Context, userID notes.UserID, filter notes.NoteFilter) ([]notes.Note, error)
	Get(ctx context.Context, userID notes.UserID, id string) (notes.Note, error)
	Create(ctx context.Context, userID notes.UserID, input notes.NoteInput) (notes.Note, error)
	Update(ctx context.Context, userID notes.UserID, id string, input notes.NoteInput) (notes.Note, error)
	Delete(ctx context.Context, userID notes.UserID, id string) error
}

// AccountService registers and authenticates users.
type AccountService interface {
	Register(ctx context.Context, input users.RegistrationInput) (users.User, error)
	Authenticate(ctx context.Context, username, password string) (users.User, error)
	Get(ctx context.Context, id string) (users.User, error)
}

// RequestLimiter decides whether a keyed request may proceed.
type RequestLimiter interface {
	Allow(key string) bool
}

// Dependencies wires the HTTP surface.
type Dependencies struct {
	TokenManager       TokenManager
	Folders            NamedService[notes.Folder]
	Tags               NamedService[notes.Tag]
	Notes              NoteService
	Accounts           AccountService
	LoginLimiter       RequestLimiter
	Realtime           *RealtimeDispatcher
	CORSAllowedOrigins []string
	HeartbeatInterval  time.Duration
	Logger             *zap.Logger
}

// NewHTTPHandler builds the gin engine serving the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Folders == nil {
		return nil, errMissingFolderService
	}
	if deps.Tags == nil {
		return nil, errMissingTagService
	}
	if deps.Notes == nil {
		return nil, errMissingNoteService
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.CORSAllowedOrigins))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": http.StatusText(http.StatusNotFound)})
	})

	handler := &httpHandler{
		tokens:            deps.TokenManager,
		notes:             deps.Notes,
		accounts:          deps.Accounts,
		loginLimiter:      deps.LoginLimiter,
		realtime:          deps.Realtime,
		heartbeatInterval: heartbeat,
		logger:            logger,
	}

	api := router.Group(apiPrefix)
	api.POST("/users", handler.handleRegister)
	api.POST("/auth/login", handler.handleLogin)

	protected := api.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/auth/refresh", handler.handleRefresh)

	folders := &namedResource[notes.Folder]{
		handler:   handler,
		store:     deps.Folders,
		path:      apiPrefix + "/folders",
		eventType: RealtimeEventFolderChanged,
		idOf:      func(folder notes.Folder) string { return folder.ID },
	}
	folders.register(protected.Group("/folders"))

	tags := &namedResource[notes.Tag]{
		handler:   handler,
		store:     deps.Tags,
		path:      apiPrefix + "/tags",
		eventType: RealtimeEventTagChanged,
		idOf:      func(tag notes.Tag) string { return tag.ID },
	}
	tags.register(protected.Group("/tags"))

	notesGroup := protected.Group("/notes")
	notesGroup.GET("", handler.handleListNotes)
	notesGroup.GET("/:id", handler.handleGetNote)
	notesGroup.POST("", handler.handleCreateNote)
	notesGroup.PUT("/:id", handler.handleUpdateNote)
	notesGroup.DELETE("/:id", handler.handleDeleteNote)

	stream := api.Group("/")
	stream.Use(handler.authorizeStream)
	stream.GET("/events", handler.handleEventStream)

	return router, nil
}

type httpHandler struct {
	tokens            TokenManager
	notes             NoteService
	accounts          AccountService
	loginLimiter      RequestLimiter
	realtime          *RealtimeDispatcher
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Location"},
		MaxAge:        12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 || containsWildcard(origins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// authorizeRequest accepts only the Authorization header.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	h.authorize(c, bearerToken(c.GetHeader("Authorization")))
}

// authorizeStream also accepts the token as a query parameter because EventSource cannot set headers.
func (h *httpHandler) authorizeStream(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = strings.TrimSpace(c.Query(accessTokenQueryKey))
	}
	h.authorize(c, token)
}

func (h *httpHandler) authorize(c *gin.Context, token string) {
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": http.StatusText(http.StatusUnauthorized)})
		return
	}
	principal, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": http.StatusText(http.StatusUnauthorized)})
		return
	}
	userID, err := notes.NewUserID(principal.UserID)
	if err != nil {
		h.logger.Warn("token subject rejected", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": http.StatusText(http.StatusUnauthorized)})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Set(principalContextKey, principal)
	c.Next()
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// currentUser returns the authenticated owner. It is only called behind authorizeRequest.
func currentUser(c *gin.Context) (notes.UserID, bool) {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	userID, ok := value.(notes.UserID)
	return userID, ok && userID != ""
}

func (h *httpHandler) requireUser(c *gin.Context) (notes.UserID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": http.StatusText(http.StatusUnauthorized)})
		return "", false
	}
	return userID, true
}
