package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-service/internal/auth"
	"chat-service/internal/bus"
	"chat-service/internal/config"
	"chat-service/internal/db"
	"chat-service/internal/handlers"
	"chat-service/internal/middleware"
	"chat-service/internal/observability"
	"chat-service/internal/presence"
	"chat-service/internal/repositories"
	"chat-service/internal/rooms"
	"chat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "chat-service")
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	if cfg.AMQPURL != "" {
		publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer publisher.Close()
		observability.SetPublisher(publisher)
	} else {
		log.Printf("AMQP_URL not set, event publishing disabled")
	}

	roomRepo := repositories.NewRoomRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	presenceStore := presence.NewRedisStore(redisClient)
	memberStore := rooms.NewRedisMemberStore(redisClient)
	eventBus := bus.NewRedisBus(redisClient)
	authService := auth.NewService(auth.NewRedisTicketStore(redisClient), cfg.JWTSecret, cfg.TicketTTL)

	hub := ws.NewHub()
	coordinator := ws.NewCoordinator(roomRepo, chatRepo, messageRepo, memberStore, eventBus)
	wsHandler := ws.NewHandler(hub, coordinator, presenceStore, authService, cfg.PresenceTTL)

	go func() {
		if err := eventBus.Subscribe(ctx, hub.Deliver); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("bus subscription ended: %v", err)
		}
	}()

	ticketHandler := handlers.NewTicketHandler(authService)
	roomHandler := handlers.NewRoomHandler(roomRepo)
	chatHandler := handlers.NewChatHandler(coordinator)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(authService)

	api := router.Group("/api", authMiddleware)
	api.POST("/tickets", ticketHandler.CreateTicket)

	api.POST("/rooms", roomHandler.CreateRoom)
	api.GET("/rooms", roomHandler.ListRooms)
	api.GET("/rooms/:room_id", roomHandler.GetRoom)
	api.DELETE("/rooms/:room_id", roomHandler.DeleteRoom)

	api.GET("/chats", chatHandler.ListChats)
	api.POST("/chats/private", chatHandler.CreatePrivateChat)
	api.POST("/chats/group", chatHandler.CreateGroupChat)
	api.GET("/chats/:chat_id/messages", chatHandler.GetChatMessages)
	api.POST("/chats/:chat_id/participants", chatHandler.AddParticipant)
	api.DELETE("/chats/:chat_id/participants/:username", chatHandler.RemoveParticipant)
	api.PATCH("/chats/:chat_id/admins", chatHandler.UpdateAdmin)

	router.GET("/ws", wsHandler.Handle)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	// Closing the sockets runs each connection's disconnect path, which
	// releases presence locks and room memberships before the stores close.
	hub.CloseAll()
	time.Sleep(100 * time.Millisecond)
}
