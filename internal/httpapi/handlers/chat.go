package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acelabs/aceai/internal/chat"
	"github.com/acelabs/aceai/internal/chatstore"
	"github.com/acelabs/aceai/internal/common"
	"github.com/acelabs/aceai/internal/httpapi/middleware"
	"github.com/acelabs/aceai/internal/index"
)

type chatReq struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// ChatTurn runs one streaming conversational turn over SSE. The first
// event always carries the session id; generated tokens follow as they
// arrive.
func (h *Handler) ChatTurn(c *gin.Context) {
	rec, ok := middleware.KeyRecord(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		common.Fail(c, http.StatusBadRequest, 10030, "message cannot be empty")
		return
	}

	ctx := c.Request.Context()
	events, err := h.ChatSvc.StreamTurn(ctx, rec.ID, req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chatstore.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40420, "session not found")
		case errors.Is(err, index.ErrEmbedding):
			common.Fail(c, http.StatusBadGateway, 50201, "embedding backend unavailable")
		default:
			log.Printf("[ChatTurn] failed key_id=%d err=%v", rec.ID, err)
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		}
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\":\"streaming not supported\"}\n\n")
		return
	}

	writeEvent := func(e chat.Event) {
		b, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", e.Type, b)
		flusher.Flush()
	}

	// heartbeat keeps idle proxies from closing the stream
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			writeEvent(e)
		case <-ticker.C:
			fmt.Fprintf(c.Writer, "event: ping\ndata: {\"ts\":%d}\n\n", time.Now().Unix())
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) ListChatSessions(c *gin.Context) {
	rec, ok := middleware.KeyRecord(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessions, err := h.Sessions.ListSessions(c.Request.Context(), rec.ID)
	if err != nil {
		log.Printf("[ListChatSessions] failed key_id=%d err=%v", rec.ID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list sessions")
		return
	}
	common.OK(c, gin.H{"sessions": sessions})
}

func (h *Handler) GetChatMessages(c *gin.Context) {
	rec, ok := middleware.KeyRecord(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	sessionID := c.Param("session_id")

	// ownership check; foreign sessions read as absent
	if _, err := h.Sessions.GetSession(c.Request.Context(), sessionID, rec.ID); err != nil {
		if errors.Is(err, chatstore.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40420, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	msgs, err := h.Sessions.GetMessages(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("[GetChatMessages] failed session_id=%s err=%v", sessionID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list messages")
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) DeleteChatSession(c *gin.Context) {
	rec, ok := middleware.KeyRecord(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	sessionID := c.Param("session_id")

	deleted, err := h.Sessions.DeleteSession(c.Request.Context(), sessionID, rec.ID)
	if err != nil {
		log.Printf("[DeleteChatSession] failed session_id=%s err=%v", sessionID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to delete session")
		return
	}
	if !deleted {
		common.Fail(c, http.StatusNotFound, 40420, "session not found")
		return
	}
	common.OK(c, gin.H{"status": "success"})
}
