// internal/handlers/user_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/madhavavukkum/Cipher-Chat/internal/auth"
	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

// TestMeHandler verifies the self-lookup endpoint returns the caller's own
// record with the password hash stripped.
func TestMeHandler(t *testing.T) {
	requireTestDB(t)

	suffix := uuid.NewString()[:8]
	u := createTestUser(t, "me-"+suffix+"@example.com", "password", "me-"+suffix)
	token, _ := auth.CreateJWT(u.ID.String())

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()
	MeHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
	}

	var got models.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != u.ID || got.Username != u.Username {
		t.Fatalf("expected own record, got %+v", got)
	}
	if got.Password != "" {
		t.Fatalf("password hash leaked in response")
	}

	// Without a cookie the endpoint refuses.
	req = httptest.NewRequest("GET", "/auth/me", nil)
	w = httptest.NewRecorder()
	MeHandler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", w.Code)
	}
}

// TestGuestTeardown covers the guest lifecycle end to end: a guest logs in,
// leaves messages and a pending friend request behind, and logout removes
// the account together with everything it produced.
func TestGuestTeardown(t *testing.T) {
	requireTestDB(t)

	suffix := uuid.NewString()[:8]
	resident := createTestUser(t, "resident-"+suffix+"@example.com", "password", "resident-"+suffix)

	// Guest login through the handler, keeping the cookie it sets.
	body := `{"username":"visitor-` + suffix + `"}`
	req := httptest.NewRequest("POST", "/auth/guest", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	GuestLoginHandler(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 created, got %d, body=%s", w.Code, w.Body.String())
	}
	var guest models.User
	if err := json.Unmarshal(w.Body.Bytes(), &guest); err != nil {
		t.Fatalf("failed to decode guest: %v", err)
	}
	var cookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c.Name + "=" + c.Value
		}
	}
	if cookie == "" {
		t.Fatalf("guest login set no auth cookie")
	}

	ctx := context.Background()
	if _, err := database.InsertMessage(ctx, guest.ID, resident.ID, "just passing through", models.MessageKindText); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	if _, err := database.InsertFriendRequest(ctx, guest.ID, resident.ID); err != nil {
		t.Fatalf("InsertFriendRequest failed: %v", err)
	}

	req = httptest.NewRequest("POST", "/auth/logout", nil)
	req.Header.Set("Cookie", cookie)
	w = httptest.NewRecorder()
	LogoutHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
	}

	// The cookie is expired in the response.
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not expire the auth cookie")
	}

	// The account and everything it produced are gone.
	if _, err := database.GetUserByID(ctx, guest.ID); !errors.Is(err, database.ErrUserNotFound) {
		t.Fatalf("expected guest account to be deleted, got err=%v", err)
	}
	if n, err := database.CountUnread(ctx, resident.ID, guest.ID); err != nil || n != 0 {
		t.Fatalf("expected no surviving guest messages, got n=%d err=%v", n, err)
	}
	pending, err := database.ListPendingRequests(ctx, resident.ID)
	if err != nil {
		t.Fatalf("ListPendingRequests failed: %v", err)
	}
	for _, p := range pending {
		if p.SenderID == guest.ID {
			t.Fatalf("guest's friend request survived teardown")
		}
	}
}

// TestLogoutPersistentAccount verifies a regular account survives logout and
// is merely flagged offline.
func TestLogoutPersistentAccount(t *testing.T) {
	requireTestDB(t)

	suffix := uuid.NewString()[:8]
	u := createTestUser(t, "stay-"+suffix+"@example.com", "password", "stay-"+suffix)
	token, _ := auth.CreateJWT(u.ID.String())

	if err := database.SetOnlineStatus(context.Background(), u.ID, true); err != nil {
		t.Fatalf("SetOnlineStatus failed: %v", err)
	}

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()
	LogoutHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ok, got %d, body=%s", w.Code, w.Body.String())
	}

	got, err := database.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("account deleted on logout: %v", err)
	}
	if got.IsOnline {
		t.Fatalf("expected account to be offline after logout")
	}
}
