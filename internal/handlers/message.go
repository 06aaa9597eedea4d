// internal/handlers/message.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

// GetMessagesHandler returns one page of the conversation with ?user_id=,
// oldest first, marking the fetched peer's messages to the caller as read.
//
// Query params: user_id (required), page (default 1), limit (default 30).
func GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	otherUUID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	if _, err := database.GetUserByID(r.Context(), otherUUID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, pagination, err := database.GetConversation(r.Context(), userUUID, otherUUID, page, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to fetch messages: %v", err), http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages":   msgs,
		"pagination": pagination,
	})
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"body"`
	Kind       string `json:"kind"`
}

// SendMessageHandler is the synchronous send path for clients without a live
// socket. Persists exactly like the gateway but performs no live delivery;
// the receiver picks the message up from history.
func SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	receiverUUID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		http.Error(w, "invalid receiver_id", http.StatusBadRequest)
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		http.Error(w, "message body is required", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = models.MessageKindText
	}

	m, err := database.InsertMessage(r.Context(), userUUID, receiverUUID, body, req.Kind)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			http.Error(w, "recipient not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to send message: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UnreadCountHandler returns how many unread messages the caller has from
// ?user_id=.
func UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	fromUUID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	count, err := database.CountUnread(r.Context(), userUUID, fromUUID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to count unread: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// DeleteMessageHandler soft-deletes one of the caller's own messages.
//
// Request payload: { "message_id": "some-uuid-string" }
func DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	messageUUID, err := uuid.Parse(req.MessageID)
	if err != nil {
		http.Error(w, "invalid message_id", http.StatusBadRequest)
		return
	}

	err = database.SoftDeleteMessage(r.Context(), messageUUID, userUUID)
	if err != nil {
		if errors.Is(err, database.ErrMessageNotFound) {
			http.Error(w, "message not found or unauthorized", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to delete message: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("message deleted"))
}
