package main

import (
	"log"

	"collabboard-backend/internal/auth"
	"collabboard-backend/internal/cache"
	"collabboard-backend/internal/config"
	"collabboard-backend/internal/database"
	"collabboard-backend/internal/directory"
	"collabboard-backend/internal/handler"
	"collabboard-backend/internal/hub"
	"collabboard-backend/internal/server"
	"collabboard-backend/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close(db)

	if err := database.Ping(db); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}
	log.Printf("Database connected")

	// Redis is optional: without it load-messages reads straight from
	// Postgres.
	var redisClient *cache.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Redis unavailable, message cache disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// The room directory is optional: without it members carry no
	// host/participant role.
	var dirClient *directory.Client
	if cfg.Directory.BaseURL != "" {
		dirClient = directory.New(cfg.Directory.BaseURL, cfg.Directory.Timeout)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	broadcastHub := hub.New()
	roomWS := handler.NewRoomWSHandler(
		broadcastHub,
		store.NewSessionStore(db),
		store.NewChatStore(db),
		redisClient,
		dirClient,
		cfg.WebSocket.VolatileQueue,
	)

	srv := server.New(cfg, broadcastHub, roomWS, jwtManager)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
