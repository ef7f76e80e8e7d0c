package progress

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/librenews/weblog-bridge/internal/service/progress"
	"github.com/librenews/weblog-bridge/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

// Handler 推送发布进度（WebSocket 与 SSE 两种方式）
type Handler struct {
	hub       *progress.Hub
	upgrader  websocket.Upgrader
	heartbeat time.Duration
}

// New 创建进度处理器
func New(hub *progress.Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		heartbeat: pingInterval,
	}
}

// RegisterRoutes 注册进度相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/progress/ws", h.handleWebSocket)
	r.Get("/progress/stream", h.handleStream)
}

func handleParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("handle"))
}

// handleWebSocket 处理WebSocket连接，只写不读（读循环仅用于感知断开和 pong）。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	handle := handleParam(r)
	if handle == "" {
		utils.RespondError(w, http.StatusBadRequest, "handle query parameter is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[progress] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(handle)
	defer sub.Close()
	log.Printf("[progress] websocket opened for handle=%s", handle)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[progress] websocket read error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[progress] websocket closed for handle=%s", handle)
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("[progress] websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handleStream 以 Server-Sent Events 推送进度
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	handle := handleParam(r)
	if handle == "" {
		utils.RespondError(w, http.StatusBadRequest, "handle query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.hub.Subscribe(handle)
	defer sub.Close()

	utils.SetupSSEHeaders(w)
	ctx := r.Context()
	log.Printf("[sse] opening progress stream for handle=%s", handle)

	if err := utils.SendSSEEvent(w, flusher, "status", map[string]any{
		"message": "stream established",
		"handle":  handle,
	}); err != nil {
		log.Printf("[sse] %v", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing progress stream for handle=%s", handle)
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			err = utils.SendSSEEvent(w, flusher, ev.Stage, ev)
		case <-ticker.C:
			err = utils.SendSSEComment(w, flusher, "heartbeat")
		}
		if err != nil {
			log.Printf("[sse] stream for handle=%s ended: %v", handle, err)
			return
		}
	}
}
