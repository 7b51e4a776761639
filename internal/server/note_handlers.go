package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
)

const (
	notesPath           = apiPrefix + "/notes"
	tagsNotArrayMessage = "The `tags` property must be an array"
)

type notePayload struct {
	Title    OptionalString  `json:"title"`
	Content  OptionalString  `json:"content"`
	FolderID OptionalString  `json:"folderId"`
	Tags     OptionalStrings `json:"tags"`
}

func (p notePayload) toInput() notes.NoteInput {
	return notes.NoteInput{
		Title:    p.Title.OrEmpty(),
		Content:  p.Content.OrEmpty(),
		FolderID: p.FolderID.OrEmpty(),
		Tags:     p.Tags.Ptr(),
	}
}

func (h *httpHandler) decodeNotePayload(c *gin.Context) (notePayload, bool) {
	var payload notePayload
	if !decodeJSON(c, &payload) {
		return notePayload{}, false
	}
	if payload.Tags.NotArray {
		c.JSON(http.StatusBadRequest, gin.H{"message": tagsNotArrayMessage})
		return notePayload{}, false
	}
	return payload, true
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	filter := notes.NoteFilter{
		SearchTerm: c.Query("searchTerm"),
		FolderID:   c.Query("folderId"),
		TagID:      c.Query("tagId"),
	}
	items, err := h.notes.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondError(c, "notes.list", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	note, err := h.notes.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, "notes.get", err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	payload, ok := h.decodeNotePayload(c)
	if !ok {
		return
	}
	input := payload.toInput()
	// Create treats a null title as absent.
	if payload.Title.Value == nil {
		input.Title = nil
	}
	note, err := h.notes.Create(c.Request.Context(), userID, input)
	if err != nil {
		h.respondError(c, "notes.create", err)
		return
	}
	h.publish(userID, RealtimeEventNoteChanged, RealtimeActionCreated, []string{note.ID}, []string{note.ID})
	c.Header("Location", notesPath+"/"+note.ID)
	c.JSON(http.StatusCreated, note)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	payload, ok := h.decodeNotePayload(c)
	if !ok {
		return
	}
	note, err := h.notes.Update(c.Request.Context(), userID, c.Param("id"), payload.toInput())
	if err != nil {
		h.respondError(c, "notes.update", err)
		return
	}
	h.publish(userID, RealtimeEventNoteChanged, RealtimeActionUpdated, []string{note.ID}, []string{note.ID})
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.notes.Delete(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, "notes.delete", err)
		return
	}
	h.publish(userID, RealtimeEventNoteChanged, RealtimeActionDeleted, []string{id}, []string{id})
	c.Status(http.StatusNoContent)
}
