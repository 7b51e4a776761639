package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/notes"
)

const (
	RealtimeEventFolderChanged = "folder-change"
	RealtimeEventTagChanged    = "tag-change"
	RealtimeEventNoteChanged   = "note-change"
	realtimeEventHeartbeat     = "heartbeat"
	realtimeSourceBackend      = "noteful-api"

	RealtimeActionCreated = "created"
	RealtimeActionUpdated = "updated"
	RealtimeActionDeleted = "deleted"

	defaultHeartbeatInterval = 25 * time.Second
)

// RealtimeMessage announces a change to one user's folders, tags or notes.
type RealtimeMessage struct {
	UserID    string
	EventType string
	Action    string
	IDs       []string
	NoteIDs   []string
	Timestamp time.Time
}

type realtimePayload struct {
	Action    string   `json:"action,omitempty"`
	IDs       []string `json:"ids"`
	NoteIDs   []string `json:"noteIds"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
}

// RealtimeDispatcher fans messages out to the subscribers of each user.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream for userID until ctx ends or cleanup is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, userID string) (<-chan RealtimeMessage, func()) {
	if userID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(userID, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(userID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers message without blocking. Subscribers with a full buffer miss it.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.UserID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.UserID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the open streams of userID.
func (d *RealtimeDispatcher) SubscriberCount(userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[userID])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(userID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[userID]; !ok {
		d.subscribers[userID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[userID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(userID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[userID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, userID)
		}
	}
	d.mu.Unlock()
}

func (h *httpHandler) publish(userID notes.UserID, eventType, action string, ids, noteIDs []string) {
	if h.realtime == nil {
		return
	}
	if noteIDs == nil {
		noteIDs = []string{}
	}
	h.realtime.Publish(RealtimeMessage{
		UserID:    userID.String(),
		EventType: eventType,
		Action:    action,
		IDs:       ids,
		NoteIDs:   noteIDs,
		Timestamp: time.Now().UTC(),
	})
}

func (h *httpHandler) handleEventStream(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": http.StatusText(http.StatusServiceUnavailable)})
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, userID.String())
	defer cleanup()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, open := <-stream:
			if !open {
				return
			}
			c.SSEvent(message.EventType, realtimePayload{
				Action:    message.Action,
				IDs:       message.IDs,
				NoteIDs:   message.NoteIDs,
				Timestamp: message.Timestamp.Format(time.RFC3339Nano),
				Source:    realtimeSourceBackend,
			})
			c.Writer.Flush()
		case tick := <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, realtimePayload{
				IDs:       []string{},
				NoteIDs:   []string{},
				Timestamp: tick.UTC().Format(time.RFC3339Nano),
				Source:    realtimeSourceBackend,
			})
			c.Writer.Flush()
		}
	}
}
