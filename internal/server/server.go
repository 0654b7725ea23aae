package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"collabboard-backend/internal/auth"
	"collabboard-backend/internal/config"
	"collabboard-backend/internal/handler"
	"collabboard-backend/internal/hub"
)

// Server wraps the Fiber app and the realtime core.
type Server struct {
	app        *fiber.App
	cfg        *config.Config
	hub        *hub.Hub
	roomWS     *handler.RoomWSHandler
	jwtManager *auth.JWTManager
}

// New creates the server around an already-wired handler.
func New(cfg *config.Config, broadcastHub *hub.Hub, roomWS *handler.RoomWSHandler, jwtManager *auth.JWTManager) *Server {
	app := fiber.New(fiber.Config{
		AppName:         "Collabboard Session Core",
		ServerHeader:    "Fiber",
		StrictRouting:   true,
		CaseSensitive:   true,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		Prefork:         false, // incompatible with websockets
		ReadBufferSize:  16384,
		WriteBufferSize: 16384,
	})

	return &Server{
		app:        app,
		cfg:        cfg,
		hub:        broadcastHub,
		roomWS:     roomWS,
		jwtManager: jwtManager,
	}
}

// SetupMiddleware installs recover, logging, and CORS.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes installs the health endpoint and the websocket entry point.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		rooms, clients := s.hub.Stats()
		return c.JSON(fiber.Map{
			"status":  "ok",
			"rooms":   rooms,
			"clients": clients,
		})
	})

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Authentication happens exactly once, here, before the upgrade. A bad
	// credential refuses the connection and no room logic ever sees it.
	s.app.Get("/ws/room", func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			token = c.Cookies("access_token")
		}

		identity, err := s.jwtManager.Verify(token)
		if err != nil {
			log.Printf("[Server] Rejected ws connection: %v", err)
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("userId", identity.UserID)
		c.Locals("displayName", identity.DisplayName)
		return c.Next()
	}, websocket.New(s.roomWS.HandleWebSocket, websocket.Config{
		ReadBufferSize:   s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  s.cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout: s.cfg.WebSocket.HandshakeTimeout,
	}))
}

// Start runs the server with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("[Server] Shutting down...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("[Server] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Server] Collabboard session core starting on %s", s.cfg.Server.Port)
	log.Printf("[Server] WebSocket endpoint: ws://localhost%s/ws/room", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
