// internal/handlers/chat_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/madhavavukkum/Cipher-Chat/internal/auth"
	"github.com/madhavavukkum/Cipher-Chat/internal/cache"
	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/middleware"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
	"github.com/madhavavukkum/Cipher-Chat/internal/presence"
)

// inboundEvent is the typed envelope for every client-to-server chat event.
// The sender's identity always comes from the authenticated session, never
// from the payload.
type inboundEvent struct {
	Type       string      `json:"type"`
	ReceiverID uuid.UUID   `json:"receiver_id,omitempty"`
	Body       string      `json:"body,omitempty"`
	Kind       string      `json:"kind,omitempty"`
	IsTyping   bool        `json:"is_typing,omitempty"`
	MessageIDs []uuid.UUID `json:"message_ids,omitempty"`
}

// validateSendMessage checks the send-message payload shape. The kind
// defaults to text when omitted.
func validateSendMessage(ev *inboundEvent) error {
	if ev.ReceiverID == uuid.Nil {
		return fmt.Errorf("receiver_id is required")
	}
	ev.Body = strings.TrimSpace(ev.Body)
	if ev.Body == "" {
		return fmt.Errorf("message body is required")
	}
	switch ev.Kind {
	case "":
		ev.Kind = models.MessageKindText
	case models.MessageKindText, models.MessageKindImage, models.MessageKindFile:
	default:
		return fmt.Errorf("unknown message kind %q", ev.Kind)
	}
	return nil
}

// ChatWSHandler upgrades the connection, authenticates the cookie token and
// runs the session until the transport closes. No session state is
// registered unless authentication succeeds.
func ChatWSHandler(logger *logrus.Logger, cs *ChatServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chat"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "chat" {
			c.Close(BadSubprotocolError, "client must speak the chat subprotocol")
			return
		}

		user, closeCode, err := authenticateWS(r)
		if err != nil {
			logger.Warnf("chat auth failed for %s: %v", remoteAddr, err)
			c.Close(websocket.StatusCode(closeCode), "authentication failed")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		sess := presence.NewSession(user.ID, user.Username, cancel)

		// Last connection wins: a fresh connection for an already-present
		// user evicts the stored session.
		if old := cs.Presence.Put(user.ID, sess); old != nil {
			logger.Infof("evicting previous session for user %v", user.ID)
			old.Close()
		}

		if err := database.SetOnlineStatus(ctx, user.ID, true); err != nil {
			logger.Warnf("failed to set online flag for %v: %v", user.ID, err)
		}
		cs.broadcastToFriends(ctx, user.ID, map[string]interface{}{
			"type":     "presence-online",
			"user_id":  user.ID.String(),
			"username": user.Username,
		})
		middleware.LogWebSocketConnect(logger, remoteAddr, user.Username)

		go writePump(ctx, c, sess, logger)
		readPump(ctx, c, cs, sess, logger)

		// ---- Cleanup after readPump exits ----
		// Remove only succeeds if this session wasn't already replaced by a
		// newer connection; a stale teardown must not mark the user offline.
		if cs.Presence.Remove(user.ID, sess) {
			sess.Close()
			cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelCleanup()
			if err := database.SetOnlineStatus(cleanupCtx, user.ID, false); err != nil {
				logger.Warnf("failed to set offline flag for %v: %v", user.ID, err)
			}
			cs.broadcastToFriends(cleanupCtx, user.ID, map[string]interface{}{
				"type":    "presence-offline",
				"user_id": user.ID.String(),
			})
		}
		middleware.LogWebSocketDisconnect(logger, remoteAddr, user.Username, nil)
	}
}

// authenticateWS resolves the auth_token cookie to a user row. Any failure
// refuses the connection; the returned close code distinguishes a bad token
// from a token naming no known user.
func authenticateWS(r *http.Request) (*models.User, int, error) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		return nil, InvalidAuthTokenError, fmt.Errorf("missing auth_token")
	}
	token := extractCookieToken(cookieHeader, "auth_token")

	userIDStr, err := auth.AuthenticateJWT(token)
	if err != nil {
		return nil, InvalidAuthTokenError, fmt.Errorf("invalid token: %w", err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, InvalidUserIDError, fmt.Errorf("invalid user id in token: %w", err)
	}
	user, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil, InvalidUserIDError, fmt.Errorf("unknown user %v: %w", userID, err)
	}
	return user, 0, nil
}

// readPump processes inbound events one at a time, in arrival order, until
// the connection closes or the context is cancelled. Sequential handling is
// what preserves the persist-then-emit ordering per sender.
func readPump(ctx context.Context, c *websocket.Conn, cs *ChatServer, sess *presence.Session, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("websocket closed normally for user %v", sess.UserID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("read error for user %v: %v", sess.UserID, err)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text frame type %d from user %v", typ, sess.UserID)
			continue
		}

		var ev inboundEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			logger.Warnf("invalid json from user %v: %v", sess.UserID, err)
			sess.SendError("invalid event format")
			continue
		}

		sess.LastActive = time.Now()
		handleChatEvent(ctx, cs, sess, &ev, logger)
	}
}

// handleChatEvent dispatches a single inbound event for an authenticated
// session.
func handleChatEvent(ctx context.Context, cs *ChatServer, sess *presence.Session, ev *inboundEvent, logger *logrus.Logger) {
	switch ev.Type {
	case "send-message":
		if err := validateSendMessage(ev); err != nil {
			sess.SendError(err.Error())
			return
		}

		// The durable write happens first; only a persisted message is ever
		// broadcast, and the emit shares this handler so no reordering can
		// slip between them.
		m, err := database.InsertMessage(ctx, sess.UserID, ev.ReceiverID, ev.Body, ev.Kind)
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				sess.SendError("recipient not found")
			} else {
				logger.Warnf("failed to store message from %v: %v", sess.UserID, err)
				sess.SendError("failed to send message")
			}
			return
		}

		receiverSess := cs.Presence.Get(ev.ReceiverID)
		payload := messagePayload(m, sess.Username)

		if receiverSess != nil {
			delivery := map[string]interface{}{"type": "new-message"}
			for k, v := range payload {
				delivery[k] = v
			}
			receiverSess.Send(delivery)
		}

		confirm := map[string]interface{}{"type": "message-confirmed"}
		for k, v := range payload {
			confirm[k] = v
		}
		sess.Send(confirm)

		if err := cache.PublishMessageEvent(ctx, cache.MessageEventRecord{
			MessageID:  m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.Receiver,
			Kind:       m.Kind,
			Delivered:  receiverSess != nil,
			Timestamp:  m.CreatedAt.Unix(),
		}); err != nil {
			logger.Warnf("failed to journal message %v: %v", m.ID, err)
		}

	case "typing":
		if ev.ReceiverID == uuid.Nil {
			return
		}
		// Ephemeral relay: nothing persisted, silently dropped when the
		// receiver is offline.
		if rs := cs.Presence.Get(ev.ReceiverID); rs != nil {
			rs.Send(map[string]interface{}{
				"type":      "user-typing",
				"user_id":   sess.UserID.String(),
				"username":  sess.Username,
				"is_typing": ev.IsTyping,
			})
		}

	case "mark-read":
		// Scoped to the caller as reader; mismatched ids are ignored by the
		// store, so async client batches never error.
		if err := database.MarkMessagesRead(ctx, sess.UserID, ev.MessageIDs); err != nil {
			logger.Warnf("mark-read failed for user %v: %v", sess.UserID, err)
		}

	default:
		sess.SendError(fmt.Sprintf("unknown event type: %s", ev.Type))
	}
}

// writePump drains the session's outbound queue onto the socket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, sess *presence.Session, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sess.Out():
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing event for user %v: %v", sess.UserID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket for user %v: %v", sess.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for user %v, assuming disconnect: %v", sess.UserID, err)
				return
			}
		}
	}
}
