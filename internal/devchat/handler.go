// Package devchat exposes the chat pipeline over a WebSocket, so the
// persona can be exercised locally without a Telegram bot token.
package devchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sofia-labs/sofia/internal/bot"
)

// Handler upgrades /dev/chat connections and feeds each frame through the
// same orchestrator the Telegram poller uses.
type Handler struct {
	orch          *bot.Orchestrator
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a dev chat handler.
func NewHandler(orch *bot.Orchestrator, allowedOrigin string, isDev bool) *Handler {
	return &Handler{orch: orch, allowedOrigin: allowedOrigin, isDev: isDev}
}

type inbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outbound struct {
	Type    string     `json:"type"`
	Text    string     `json:"text,omitempty"`
	Buttons [][]string `json:"buttons,omitempty"`
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept dev chat websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("failed to close dev chat websocket", "error", closeErr)
		}
	}()

	// Each connection is its own user unless the client pins one, so
	// reconnecting with the same id resumes the session.
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = "dev-" + uuid.NewString()
	}
	slog.Info("dev chat connected", "user_id", userID, "ip", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replier := &wsReplier{ws: ws}
	for {
		_, frame, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("dev chat closed by client", "user_id", userID)
			} else {
				slog.Warn("dev chat read error", "user_id", userID, "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(frame, &msg); err != nil {
			// Raw text frames are treated as chat messages.
			msg = inbound{Type: "message", Text: string(frame)}
		}

		switch msg.Type {
		case "message":
			// Synchronous on purpose: one frame, one turn, in order.
			h.orch.HandleMessage(ctx, userID, msg.Text, replier)
		case "ping":
			if err := replier.writeJSON(ctx, outbound{Type: "pong"}); err != nil {
				slog.Debug("failed to send pong", "error", err)
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("dev chat origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

type wsReplier struct {
	ws *websocket.Conn
}

func (r *wsReplier) writeJSON(ctx context.Context, v outbound) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.ws.Write(ctx, websocket.MessageText, data)
}

func (r *wsReplier) Reply(ctx context.Context, text string) error {
	return r.writeJSON(ctx, outbound{Type: "message", Text: text})
}

func (r *wsReplier) ReplyKeyboard(ctx context.Context, text string, buttons [][]string) error {
	return r.writeJSON(ctx, outbound{Type: "keyboard", Text: text, Buttons: buttons})
}
