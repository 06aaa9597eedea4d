// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/madhavavukkum/Cipher-Chat/internal/auth"
	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupHandler creates a persistent account and logs it in.
func SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		http.Error(w, "username, email and a password of at least 6 characters are required", http.StatusBadRequest)
		return
	}

	u := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if err := database.CreateUser(r.Context(), &u); err != nil {
		http.Error(w, fmt.Sprintf("failed to create user: %v", err), http.StatusConflict)
		return
	}

	token, err := auth.CreateJWT(u.ID.String())
	if err != nil {
		http.Error(w, "failed to create session token", http.StatusInternalServerError)
		return
	}
	setAuthCookie(w, token)

	u.Password = ""
	writeJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and sets the session cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	setAuthCookie(w, token)

	user, err := database.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "user lookup failed", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

type guestLoginRequest struct {
	Username string `json:"username"`
}

// GuestLoginHandler creates a throwaway guest account with a generated name
// when none is supplied. Guest accounts are purged later along with all of
// their messages and relationships.
func GuestLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req guestLoginRequest
	// Body is optional for guests.
	_ = json.NewDecoder(r.Body).Decode(&req)

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = "Guest-" + uuid.NewString()[:8]
	}

	u, err := database.CreateGuestUser(r.Context(), username)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create guest: %v", err), http.StatusConflict)
		return
	}

	token, err := auth.CreateJWT(u.ID.String())
	if err != nil {
		http.Error(w, "failed to create session token", http.StatusInternalServerError)
		return
	}
	setAuthCookie(w, token)

	u.Password = ""
	writeJSON(w, http.StatusCreated, u)
}

// LogoutHandler ends the session and clears the cookie. Guest accounts don't
// outlive their session: logout tears the account down entirely, hard-deleting
// its messages, ledger entries and friendships along with the user row.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	user, err := database.GetUserByID(r.Context(), userUUID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	if user.IsGuest {
		if err := database.DeleteGuestUser(r.Context(), userUUID); err != nil {
			http.Error(w, fmt.Sprintf("failed to tear down guest account: %v", err), http.StatusInternalServerError)
			return
		}
	} else {
		if err := database.SetOnlineStatus(r.Context(), userUUID, false); err != nil {
			http.Error(w, fmt.Sprintf("failed to log out: %v", err), http.StatusInternalServerError)
			return
		}
	}

	clearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("logged out"))
}

// MeHandler returns the authenticated user's own record.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	user, err := database.GetUserByID(r.Context(), userUUID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

// SearchUsersHandler finds users by username or email substring.
func SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}

	users, err := database.SearchUsers(r.Context(), q, userUUID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to search users: %v", err), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type profileRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
}

// UpdateProfileHandler sets the caller's mutable profile fields.
func UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	if len(req.Bio) > 200 {
		http.Error(w, "bio must be at most 200 characters", http.StatusBadRequest)
		return
	}

	if err := database.UpdateProfile(r.Context(), userUUID, req.Username, req.Bio, req.Avatar); err != nil {
		http.Error(w, fmt.Sprintf("failed to update profile: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("profile updated"))
}
