package main

import (
	"log"

	"github.com/chatly-app/chatly/config"
	"github.com/chatly-app/chatly/db"
	"github.com/chatly-app/chatly/server"
	"github.com/chatly-app/chatly/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	authRepo := db.NewAuthRepo(gormDB, conf.UsernameCaseInsensitive)
	messageRepo := db.NewMessageRepo(gormDB)

	authService := services.NewAuthService(authRepo, conf)
	chatService := services.NewChatService(messageRepo, authRepo, conf)

	s := &server.Server{
		Config:            conf,
		AuthRepository:    authRepo,
		MessageRepository: messageRepo,
		AuthService:       authService,
		ChatService:       chatService,
	}

	s.Start()
}
