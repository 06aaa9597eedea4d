// internal/handlers/friend.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

// friendErrorStatus maps relationship-store errors onto HTTP statuses.
func friendErrorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrSelfRequest):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrAlreadyFriends),
		errors.Is(err, database.ErrDuplicatePending),
		errors.Is(err, database.ErrReversePending),
		errors.Is(err, database.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, database.ErrNotFriends):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SendFriendRequestHandler appends a pending request to the target's ledger.
//
// Request payload: { "user_id": "some-uuid-string" }
func SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	targetUUID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	fr, err := database.InsertFriendRequest(r.Context(), userUUID, targetUUID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to send friend request: %v", err), friendErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, fr)
}

// ListFriendRequestsHandler returns the caller's pending ledger entries.
func ListFriendRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	reqs, err := database.ListPendingRequests(r.Context(), userUUID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list friend requests: %v", err), http.StatusInternalServerError)
		return
	}
	if reqs == nil {
		reqs = []models.FriendRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// RespondFriendRequestHandler accepts or rejects a pending request addressed
// to the caller.
//
// Request payload: { "request_id": "some-uuid-string", "action": "accept"|"reject" }
func RespondFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		RequestID string `json:"request_id"`
		Action    string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	requestUUID, err := uuid.Parse(req.RequestID)
	if err != nil {
		http.Error(w, "invalid request_id", http.StatusBadRequest)
		return
	}
	if req.Action != "accept" && req.Action != "reject" {
		http.Error(w, "action must be accept or reject", http.StatusBadRequest)
		return
	}

	err = database.RespondFriendRequest(r.Context(), userUUID, requestUUID, req.Action == "accept")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to respond to friend request: %v", err), friendErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "friend request %sed", req.Action)
}

// ListFriendsHandler returns the caller's friends, online first then by name.
func ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	friends, err := database.ListFriends(r.Context(), userUUID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list friends: %v", err), http.StatusInternalServerError)
		return
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	writeJSON(w, http.StatusOK, friends)
}

// RemoveFriendHandler removes the friendship from both sides.
//
// Request payload: { "friend_id": "some-uuid-string" }
func RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	friendUUID, err := uuid.Parse(req.FriendID)
	if err != nil {
		http.Error(w, "invalid friend_id", http.StatusBadRequest)
		return
	}

	if err := database.RemoveFriend(r.Context(), userUUID, friendUUID); err != nil {
		http.Error(w, fmt.Sprintf("failed to remove friend: %v", err), friendErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("friend removed"))
}
