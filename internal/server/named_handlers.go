package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
)

type namePayload struct {
	Name OptionalString `json:"name"`
}

// namedResource serves the folder and tag routes, which share one contract.
type namedResource[T any] struct {
	handler   *httpHandler
	store     NamedService[T]
	path      string
	eventType string
	idOf      func(T) string
}

func (r *namedResource[T]) register(group *gin.RouterGroup) {
	group.GET("", r.list)
	group.GET("/:id", r.get)
	group.POST("", r.create)
	group.PUT("/:id", r.update)
	group.DELETE("/:id", r.remove)
}

func (r *namedResource[T]) list(c *gin.Context) {
	userID, ok := r.handler.requireUser(c)
	if !ok {
		return
	}
	items, err := r.store.List(c.Request.Context(), userID, notes.ListFilter{SearchTerm: c.Query("searchTerm")})
	if err != nil {
		r.handler.respondError(c, r.path+".list", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (r *namedResource[T]) get(c *gin.Context) {
	userID, ok := r.handler.requireUser(c)
	if !ok {
		return
	}
	item, err := r.store.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		r.handler.respondError(c, r.path+".get", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (r *namedResource[T]) create(c *gin.Context) {
	userID, ok := r.handler.requireUser(c)
	if !ok {
		return
	}
	var payload namePayload
	if !decodeJSON(c, &payload) {
		return
	}
	item, err := r.store.Create(c.Request.Context(), userID, notes.NameInput{Name: payload.Name.Value})
	if err != nil {
		r.handler.respondError(c, r.path+".create", err)
		return
	}
	id := r.idOf(item)
	r.handler.publish(userID, r.eventType, RealtimeActionCreated, []string{id}, nil)
	c.Header("Location", r.path+"/"+id)
	c.JSON(http.StatusCreated, item)
}

func (r *namedResource[T]) update(c *gin.Context) {
	userID, ok := r.handler.requireUser(c)
	if !ok {
		return
	}
	var payload namePayload
	if !decodeJSON(c, &payload) {
		return
	}
	item, err := r.store.Update(c.Request.Context(), userID, c.Param("id"), notes.NameInput{Name: payload.Name.Value})
	if err != nil {
		r.handler.respondError(c, r.path+".update", err)
		return
	}
	r.handler.publish(userID, r.eventType, RealtimeActionUpdated, []string{r.idOf(item)}, nil)
	c.JSON(http.StatusOK, item)
}

// remove answers 204 for ids that do not exist so deletes stay idempotent.
func (r *namedResource[T]) remove(c *gin.Context) {
	userID, ok := r.handler.requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	result, err := r.store.Delete(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		r.handler.respondError(c, r.path+".delete", err)
		return
	}
	r.handler.publish(userID, r.eventType, RealtimeActionDeleted, []string{id}, result.AffectedNoteIDs)
	if len(result.AffectedNoteIDs) > 0 {
		r.handler.publish(userID, RealtimeEventNoteChanged, RealtimeActionUpdated, result.AffectedNoteIDs, result.AffectedNoteIDs)
	}
	c.Status(http.StatusNoContent)
}
