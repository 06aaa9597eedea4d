// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/madhavavukkum/Cipher-Chat/internal/auth"
	"github.com/madhavavukkum/Cipher-Chat/internal/cache"
	"github.com/madhavavukkum/Cipher-Chat/internal/crypto"
	"github.com/madhavavukkum/Cipher-Chat/internal/database"
	"github.com/madhavavukkum/Cipher-Chat/internal/handlers"
	"github.com/madhavavukkum/Cipher-Chat/internal/middleware"
)

func main() {
	auth.Init()
	if err := crypto.Init(os.Getenv("AES_SECRET")); err != nil {
		log.Fatalf("crypto init failed: %v", err)
	}
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// The delivery journal is optional; run without it when Redis is absent.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("message journal disabled: %v", err)
	}
	if cache.Enabled() {
		logger.Info("message journal enabled")
	}

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	// auth endpoints
	mux.Handle("/auth/signup", logged(http.HandlerFunc(handlers.SignupHandler)))
	mux.Handle("/auth/login", logged(http.HandlerFunc(handlers.LoginHandler)))
	mux.Handle("/auth/guest", logged(http.HandlerFunc(handlers.GuestLoginHandler)))
	mux.Handle("/auth/logout", logged(http.HandlerFunc(handlers.LogoutHandler)))
	mux.Handle("/auth/me", logged(http.HandlerFunc(handlers.MeHandler)))

	// user endpoints
	mux.Handle("/users/search", logged(http.HandlerFunc(handlers.SearchUsersHandler)))
	mux.Handle("/users/profile", logged(http.HandlerFunc(handlers.UpdateProfileHandler)))

	// friend endpoints
	mux.Handle("/friends/request", logged(http.HandlerFunc(handlers.SendFriendRequestHandler)))
	mux.Handle("/friends/requests", logged(http.HandlerFunc(handlers.ListFriendRequestsHandler)))
	mux.Handle("/friends/respond", logged(http.HandlerFunc(handlers.RespondFriendRequestHandler)))
	mux.Handle("/friends/list", logged(http.HandlerFunc(handlers.ListFriendsHandler)))
	mux.Handle("/friends/remove", logged(http.HandlerFunc(handlers.RemoveFriendHandler)))

	// message endpoints
	mux.Handle("/messages/history", logged(http.HandlerFunc(handlers.GetMessagesHandler)))
	mux.Handle("/messages/send", logged(http.HandlerFunc(handlers.SendMessageHandler)))
	mux.Handle("/messages/unread", logged(http.HandlerFunc(handlers.UnreadCountHandler)))
	mux.Handle("/messages/delete", logged(http.HandlerFunc(handlers.DeleteMessageHandler)))

	// chat websocket
	srv := handlers.NewChatServer(logger)
	mux.Handle("/chat/ws", logged(http.HandlerFunc(
		handlers.ChatWSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
