package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/messaging"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/metrics"
	"cragline/backend/internal/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxCommandSize = 16 << 10
	sendBuffer     = 32
)

// Frame is one server-to-client message. State carries the full model
// state after the change.
type Frame struct {
	Type  string `json:"type"`
	State any    `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	FrameConversations = "conversations"
	FrameNotifications = "notifications"
	FrameError         = "error"
)

// Command is one client-to-server message.
type Command struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`
	Content        string `json:"content,omitempty"`
	MediaURL       string `json:"mediaUrl,omitempty"`
}

const (
	CmdSendMessage              = "sendMessage"
	CmdMarkConversationRead     = "markConversationRead"
	CmdOpenConversation         = "openConversation"
	CmdCloseConversation        = "closeConversation"
	CmdMarkNotificationRead     = "markNotificationRead"
	CmdMarkAllNotificationsRead = "markAllNotificationsRead"
	CmdDeleteNotification       = "deleteNotification"
)

// Realtime serves /v1/ws: one conversation inbox and one notification inbox
// per connection, every state change pushed as a frame.
type Realtime struct {
	messaging     *messaging.Service
	notifications *notifications.Service
	log           *logger.Logger
	upgrader      websocket.Upgrader
}

func NewRealtime(msg *messaging.Service, notif *notifications.Service, allowedOrigins []string, log *logger.Logger) *Realtime {
	if log == nil {
		log = logger.Nop()
	}
	return &Realtime{
		messaging:     msg,
		notifications: notif,
		log:           log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows native clients (no Origin header) and the configured
// web origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := map[string]bool{}
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

func (h *Realtime) Serve(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	if !s.Authenticated() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", err)
		return
	}

	// the request context ends with the handler; the session outlives it
	ctx := h.log.WithFields(context.WithoutCancel(r.Context()), map[string]any{"ws_session": uuid.NewString()})
	ctx, cancel := context.WithCancel(ctx)
	sess := newWSSession(ctx, cancel, conn, s, h)
	metrics.WSSessions.Inc()
	h.log.Info(ctx, "websocket session opened")

	go sess.writePump()
	sess.start()
	sess.readPump()

	sess.close()
	metrics.WSSessions.Dec()
	h.log.Info(ctx, "websocket session closed")
}

type wsSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	log    *logger.Logger

	conversations *messaging.Inbox
	notifications *notifications.Inbox
	unsubscribe   []func()

	send      chan Frame
	closeOnce sync.Once
}

func newWSSession(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, s authctx.Session, h *Realtime) *wsSession {
	return &wsSession{
		ctx:           ctx,
		cancel:        cancel,
		conn:          conn,
		log:           h.log,
		conversations: messaging.NewInbox(h.messaging, s),
		notifications: notifications.NewInbox(h.notifications, s),
		send:          make(chan Frame, sendBuffer),
	}
}

// push never blocks the model that published the change. A client too slow
// to drain its buffer is disconnected.
func (ws *wsSession) push(f Frame) {
	select {
	case <-ws.ctx.Done():
	case ws.send <- f:
	default:
		ws.log.Warn(ws.ctx, "websocket client too slow, closing", nil)
		ws.cancel()
	}
}

func (ws *wsSession) start() {
	ws.unsubscribe = append(ws.unsubscribe,
		ws.conversations.Subscribe(func(_, next messaging.InboxState) {
			ws.push(Frame{Type: FrameConversations, State: next})
		}),
		ws.notifications.Subscribe(func(_, next notifications.InboxState) {
			ws.push(Frame{Type: FrameNotifications, State: next})
		}),
	)
	ws.conversations.Start(ws.ctx)
	ws.notifications.Start(ws.ctx)
}

func (ws *wsSession) close() {
	ws.closeOnce.Do(func() {
		for _, u := range ws.unsubscribe {
			u()
		}
		ws.conversations.Stop()
		ws.notifications.Stop()
		ws.cancel()
		_ = ws.conn.Close()
	})
}

func (ws *wsSession) readPump() {
	ws.conn.SetReadLimit(maxCommandSize)
	_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := ws.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Warn(ws.ctx, "websocket read failed", err)
			}
			return
		}
		if ws.ctx.Err() != nil {
			return
		}
		ws.dispatch(cmd)
	}
}

func (ws *wsSession) dispatch(cmd Command) {
	ctx := ws.ctx
	switch cmd.Type {
	case CmdSendMessage:
		ws.conversations.Send(ctx, cmd.ConversationID, messaging.SendInput{Content: cmd.Content, MediaURL: cmd.MediaURL})
	case CmdMarkConversationRead:
		ws.conversations.MarkRead(ctx, cmd.ConversationID)
	case CmdOpenConversation:
		ws.conversations.Open(ctx, cmd.ConversationID)
	case CmdCloseConversation:
		ws.conversations.Close()
	case CmdMarkNotificationRead:
		ws.notifications.MarkAsRead(ctx, cmd.NotificationID)
	case CmdMarkAllNotificationsRead:
		ws.notifications.MarkAllAsRead(ctx)
	case CmdDeleteNotification:
		ws.notifications.Delete(ctx, cmd.NotificationID)
	default:
		ws.push(Frame{Type: FrameError, Error: "unknown command " + cmd.Type})
	}
}

func (ws *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.conn.Close()
	}()

	for {
		select {
		case <-ws.ctx.Done():
			_ = ws.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case f := <-ws.send:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			b, err := json.Marshal(f)
			if err != nil {
				ws.log.Error(ws.ctx, "encode frame", err)
				continue
			}
			if err := ws.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				ws.cancel()
				return
			}
		case <-ticker.C:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.cancel()
				return
			}
		}
	}
}
