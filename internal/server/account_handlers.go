package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/auth"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/users"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/validation"
	"go.uber.org/zap"
)

const usersPath = apiPrefix + "/users"

type credentialsPayload struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	fields := map[string]any{}
	if !decodeJSON(c, &fields) {
		return
	}
	if err := validation.ValidateRegistration(fields); err != nil {
		h.respondError(c, "users.register", err)
		return
	}

	input := users.RegistrationInput{
		Username: fields[validation.FieldUsername].(string),
		Password: fields[validation.FieldPassword].(string),
	}
	if fullname, ok := fields[validation.FieldFullname].(string); ok {
		input.Fullname = fullname
	}

	user, err := h.accounts.Register(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "users.register", err)
		return
	}
	c.Header("Location", usersPath+"/"+user.ID)
	c.JSON(http.StatusCreated, user)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	if h.loginLimiter != nil && !h.loginLimiter.Allow(c.ClientIP()) {
		h.logger.Info("login rate limited", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusTooManyRequests, gin.H{"message": http.StatusText(http.StatusTooManyRequests)})
		return
	}

	var payload credentialsPayload
	if !decodeJSON(c, &payload) {
		return
	}
	if err := validation.RequireField(validation.FieldUsername, payload.Username); err != nil {
		h.respondError(c, "auth.login", err)
		return
	}
	if err := validation.RequireField(validation.FieldPassword, payload.Password); err != nil {
		h.respondError(c, "auth.login", err)
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), *payload.Username, *payload.Password)
	if err != nil {
		h.respondError(c, "auth.login", err)
		return
	}
	h.issueToken(c, user)
}

func (h *httpHandler) handleRefresh(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	user, err := h.accounts.Get(c.Request.Context(), userID.String())
	if err != nil {
		if apperr.StatusOf(err) == http.StatusNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"message": http.StatusText(http.StatusUnauthorized)})
			return
		}
		h.respondError(c, "auth.refresh", err)
		return
	}
	h.issueToken(c, user)
}

func (h *httpHandler) issueToken(c *gin.Context, user users.User) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), auth.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Fullname: user.Fullname,
	})
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": http.StatusText(http.StatusInternalServerError), "code": "auth.issue_token"})
		return
	}
	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}
