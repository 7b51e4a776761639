package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/auth"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/database"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/users"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSigningSecret = "test-signing-secret"

type testAPI struct {
	handler    http.Handler
	issuer     *auth.TokenIssuer
	dispatcher *RealtimeDispatcher
}

type testAPIOption func(*Dependencies)

func withLoginLimiter(limiter RequestLimiter) testAPIOption {
	return func(deps *Dependencies) {
		deps.LoginLimiter = limiter
	}
}

func newTestAPI(t *testing.T, options ...testAPIOption) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "noteful.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql database: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	idProvider := notes.NewUUIDProvider()
	storeConfig := notes.StoreConfig{Database: db, Clock: time.Now, IDProvider: idProvider}
	folders, err := notes.NewFolderStore(storeConfig)
	if err != nil {
		t.Fatalf("failed to construct folder store: %v", err)
	}
	tags, err := notes.NewTagStore(storeConfig)
	if err != nil {
		t.Fatalf("failed to construct tag store: %v", err)
	}
	noteStore, err := notes.NewNoteStore(storeConfig)
	if err != nil {
		t.Fatalf("failed to construct note store: %v", err)
	}
	accounts, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Hasher:     auth.NewBcryptHasher(bcrypt.MinCost),
	})
	if err != nil {
		t.Fatalf("failed to construct account service: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to construct token issuer: %v", err)
	}

	dispatcher := NewRealtimeDispatcher()
	deps := Dependencies{
		TokenManager: issuer,
		Folders:      folders,
		Tags:         tags,
		Notes:        noteStore,
		Accounts:     accounts,
		Realtime:     dispatcher,
		Logger:       zap.NewNop(),
	}
	for _, option := range options {
		option(&deps)
	}
	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return &testAPI{handler: handler, issuer: issuer, dispatcher: dispatcher}
}

// do sends body (marshalled unless it is already a string) and returns the recorder.
func (api *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(typed))
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	api.handler.ServeHTTP(recorder, request)
	return recorder
}

// signUp registers username and returns a bearer token obtained through login.
func (api *testAPI) signUp(t *testing.T, username string) string {
	t.Helper()
	registered := api.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"username": username,
		"password": "correct-horse",
		"fullname": "Test " + username,
	})
	if registered.Code != http.StatusCreated {
		t.Fatalf("register %s: unexpected status %d: %s", username, registered.Code, registered.Body.String())
	}
	login := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login %s: unexpected status %d: %s", username, login.Code, login.Body.String())
	}
	var payload authResponsePayload
	decodeBody(t, login, &payload)
	return payload.AccessToken
}

func (api *testAPI) createFolder(t *testing.T, token, name string) notes.Folder {
	t.Helper()
	recorder := api.do(t, http.MethodPost, "/api/folders", token, map[string]string{"name": name})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create folder %q: unexpected status %d: %s", name, recorder.Code, recorder.Body.String())
	}
	var folder notes.Folder
	decodeBody(t, recorder, &folder)
	return folder
}

func (api *testAPI) createTag(t *testing.T, token, name string) notes.Tag {
	t.Helper()
	recorder := api.do(t, http.MethodPost, "/api/tags", token, map[string]string{"name": name})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create tag %q: unexpected status %d: %s", name, recorder.Code, recorder.Body.String())
	}
	var tag notes.Tag
	decodeBody(t, recorder, &tag)
	return tag
}

func (api *testAPI) createNote(t *testing.T, token string, body map[string]any) notes.Note {
	t.Helper()
	recorder := api.do(t, http.MethodPost, "/api/notes", token, body)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create note: unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	var note notes.Note
	decodeBody(t, recorder, &note)
	return note
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func messageOf(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	decodeBody(t, recorder, &payload)
	return payload.Message
}

type stubTokenManager struct {
	principal   auth.Principal
	validateErr error
}

func (s stubTokenManager) IssueToken(context.Context, auth.Principal) (string, int64, error) {
	return "stub-token", 60, nil
}

func (s stubTokenManager) ValidateToken(string) (auth.Principal, error) {
	if s.validateErr != nil {
		return auth.Principal{}, s.validateErr
	}
	return s.principal, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }
