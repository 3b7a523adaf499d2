package handler

import (
	"errors"
	"log"
	"net/http"

	"anoa.com/labeebacademy/internal/modules/upload/dto"
	uploadService "anoa.com/labeebacademy/internal/modules/upload/service"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type UploadHandler struct {
	tracker   uploadService.Tracker
	publisher uploadService.Publisher
	upgrader  websocket.Upgrader
}

func NewUploadHandler(tracker uploadService.Tracker, publisher uploadService.Publisher) *UploadHandler {
	return &UploadHandler{
		tracker:   tracker,
		publisher: publisher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced on the REST routes
			},
		},
	}
}

func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *UploadHandler) GetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	snap, err := h.tracker.Get(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *UploadHandler) CancelTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	snap, err := h.tracker.Cancel(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, snap)
}

// StreamTask pushes task snapshots over a WebSocket until the task ends or
// the client goes away. Tasks running on another instance are followed
// through redis.
func (h *UploadHandler) StreamTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	// initial is written first when following another instance, whose
	// channel only carries snapshots published after subscribing.
	var initial *dto.Snapshot
	ch, unsubscribe, err := h.tracker.Subscribe(id)
	if errors.Is(err, apperror.ErrNotFound) {
		var snap dto.Snapshot
		snap, err = h.tracker.Get(c.Request.Context(), id)
		if err == nil && !snap.Terminal() {
			ch, unsubscribe, err = h.publisher.Subscribe(c.Request.Context(), id)
			// The task may have moved on before the subscription was live.
			if err == nil {
				if last, lastErr := h.tracker.Get(c.Request.Context(), id); lastErr == nil {
					snap = last
				}
				if snap.Terminal() {
					unsubscribe()
					ch, unsubscribe = finished(snap), func() {}
				} else {
					initial = &snap
				}
			}
		} else if err == nil {
			ch, unsubscribe = finished(snap), func() {}
		}
	}
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	if initial != nil {
		if err := conn.WriteJSON(*initial); err != nil {
			log.Printf("Failed to write message to websocket: %v", err)
			return
		}
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("Failed to write message to websocket: %v", err)
				return
			}
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func finished(snap dto.Snapshot) <-chan dto.Snapshot {
	ch := make(chan dto.Snapshot, 1)
	ch <- snap
	close(ch)
	return ch
}
