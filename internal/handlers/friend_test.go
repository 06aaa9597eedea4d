// internal/handlers/friend_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/madhavavukkum/Cipher-Chat/internal/auth"
	"github.com/madhavavukkum/Cipher-Chat/internal/crypto"
	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

// requireTestDB wires up auth, crypto and the DB pool, or skips when no test
// database is configured.
func requireTestDB(t *testing.T) {
	t.Helper()
	if os.Getenv("PG_HOST") == "" {
		t.Skip("PG_HOST not set; skipping DB-backed test")
	}
	auth.Init()
	if err := crypto.Init("test-secret"); err != nil {
		t.Fatalf("crypto init failed: %v", err)
	}
	database.ConnectDB()
}

// helper to create a test user directly in DB
func createTestUser(t *testing.T, email, pass, uname string) models.User {
	t.Helper()
	u := models.User{
		Email:    email,
		Password: pass,
		Username: uname,
	}
	if err := database.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

// TestFriendFlow is a high-level integration test covering the full request
// lifecycle: request, duplicate guard, reverse guard, accept, symmetric
// listing, removal.
func TestFriendFlow(t *testing.T) {
	requireTestDB(t)

	suffix := uuid.NewString()[:8]
	alice := createTestUser(t, "alice-"+suffix+"@example.com", "password", "alice-"+suffix)
	bob := createTestUser(t, "bob-"+suffix+"@example.com", "password", "bob-"+suffix)

	aliceToken, _ := auth.CreateJWT(alice.ID.String())
	bobToken, _ := auth.CreateJWT(bob.ID.String())

	// alice sends a friend request to bob
	reqBody := `{"user_id":"` + bob.ID.String() + `"}`
	req := httptest.NewRequest("POST", "/friends/request", bytes.NewBufferString(reqBody))
	req.Header.Set("Cookie", "auth_token="+aliceToken)
	w := httptest.NewRecorder()
	SendFriendRequestHandler(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 created, got %d, body=%s", w.Code, w.Body.String())
	}

	// a second identical request conflicts
	req = httptest.NewRequest("POST", "/friends/request", bytes.NewBufferString(reqBody))
	req.Header.Set("Cookie", "auth_token="+aliceToken)
	w = httptest.NewRecorder()
	SendFriendRequestHandler(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate pending, got %d, body=%s", w.Code, w.Body.String())
	}

	// bob cross-requesting alice while hers is pending conflicts too
	revBody := `{"user_id":"` + alice.ID.String() + `"}`
	req = httptest.NewRequest("POST", "/friends/request", bytes.NewBufferString(revBody))
	req.Header.Set("Cookie", "auth_token="+bobToken)
	w = httptest.NewRecorder()
	SendFriendRequestHandler(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reverse pending, got %d, body=%s", w.Code, w.Body.String())
	}

	// bob lists his pending requests and finds alice's
	req = httptest.NewRequest("GET", "/friends/requests", nil)
	req.Header.Set("Cookie", "auth_token="+bobToken)
	w = httptest.NewRecorder()
	ListFriendRequestsHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
	}
	var pending []models.FriendRequest
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatalf("failed to decode pending requests: %v", err)
	}
	var requestID uuid.UUID
	for _, p := range pending {
		if p.SenderID == alice.ID {
			requestID = p.ID
		}
	}
	if requestID == uuid.Nil {
		t.Fatalf("alice's request not found in bob's pending list")
	}

	// bob accepts
	accBody := `{"request_id":"` + requestID.String() + `","action":"accept"}`
	req = httptest.NewRequest("POST", "/friends/respond", bytes.NewBufferString(accBody))
	req.Header.Set("Cookie", "auth_token="+bobToken)
	w = httptest.NewRecorder()
	RespondFriendRequestHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
	}

	// accepting again conflicts
	req = httptest.NewRequest("POST", "/friends/respond", bytes.NewBufferString(accBody))
	req.Header.Set("Cookie", "auth_token="+bobToken)
	w = httptest.NewRecorder()
	RespondFriendRequestHandler(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for already-processed, got %d, body=%s", w.Code, w.Body.String())
	}

	// the friendship shows up on both sides
	ok, err := database.CheckFriendshipSymmetry(context.Background(), alice.ID, bob.ID)
	if err != nil || !ok {
		t.Fatalf("expected symmetric friendship, got ok=%v err=%v", ok, err)
	}

	listFriends := func(token string) []models.Friend {
		req := httptest.NewRequest("GET", "/friends/list", nil)
		req.Header.Set("Cookie", "auth_token="+token)
		w := httptest.NewRecorder()
		ListFriendsHandler(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
		}
		var fs []models.Friend
		if err := json.Unmarshal(w.Body.Bytes(), &fs); err != nil {
			t.Fatalf("failed to decode friend list: %v", err)
		}
		return fs
	}
	if !containsFriend(listFriends(bobToken), alice.ID) {
		t.Fatalf("alice missing from bob's friend list")
	}
	if !containsFriend(listFriends(aliceToken), bob.ID) {
		t.Fatalf("bob missing from alice's friend list")
	}

	// alice removes bob; gone from both sides
	remBody := `{"friend_id":"` + bob.ID.String() + `"}`
	req = httptest.NewRequest("POST", "/friends/remove", bytes.NewBufferString(remBody))
	req.Header.Set("Cookie", "auth_token="+aliceToken)
	w = httptest.NewRecorder()
	RemoveFriendHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
	}
	if containsFriend(listFriends(bobToken), alice.ID) {
		t.Fatalf("alice still in bob's friend list after removal")
	}

	// removing again fails
	req = httptest.NewRequest("POST", "/friends/remove", bytes.NewBufferString(remBody))
	req.Header.Set("Cookie", "auth_token="+aliceToken)
	w = httptest.NewRecorder()
	RemoveFriendHandler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for not-friends, got %d, body=%s", w.Code, w.Body.String())
	}
}

// TestSelfFriendRequest ensures a user cannot friend themselves.
func TestSelfFriendRequest(t *testing.T) {
	requireTestDB(t)

	suffix := uuid.NewString()[:8]
	u := createTestUser(t, "self-"+suffix+"@example.com", "password", "self-"+suffix)
	token, _ := auth.CreateJWT(u.ID.String())

	body := `{"user_id":"` + u.ID.String() + `"}`
	req := httptest.NewRequest("POST", "/friends/request", bytes.NewBufferString(body))
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()
	SendFriendRequestHandler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self request, got %d, body=%s", w.Code, w.Body.String())
	}
}

func containsFriend(fs []models.Friend, id uuid.UUID) bool {
	for _, f := range fs {
		if f.UserID == id {
			return true
		}
	}
	return false
}
