// internal/handlers/chat_server.go
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
	"github.com/madhavavukkum/Cipher-Chat/internal/presence"
)

// ChatServer holds the process-wide presence registry shared by every chat
// connection and the HTTP layer.
type ChatServer struct {
	Presence *presence.Registry
	Logger   *logrus.Logger
}

func NewChatServer(logger *logrus.Logger) *ChatServer {
	return &ChatServer{
		Presence: presence.NewRegistry(),
		Logger:   logger,
	}
}

// broadcastToFriends fans an event out to every friend of userID that has a
// live session. Failure to reach a single friend (evicted mid-loop, full
// queue) is swallowed; fan-out never stalls the triggering connection.
func (cs *ChatServer) broadcastToFriends(ctx context.Context, userID uuid.UUID, event map[string]interface{}) {
	friendIDs, err := database.ListFriendIDs(ctx, userID)
	if err != nil {
		cs.Logger.Warnf("failed to list friends of %v for broadcast: %v", userID, err)
		return
	}
	for _, fid := range friendIDs {
		if s := cs.Presence.Get(fid); s != nil {
			s.Send(event)
		}
	}
}

// messagePayload is the wire shape shared by new-message and
// message-confirmed events.
func messagePayload(m *models.Message, senderName string) map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID.String(),
		"sender_id":   m.SenderID.String(),
		"sender_name": senderName,
		"receiver_id": m.Receiver.String(),
		"body":        m.Body,
		"timestamp":   m.CreatedAt.Format(time.RFC3339Nano),
		"kind":        m.Kind,
		"is_read":     m.IsRead,
	}
}
