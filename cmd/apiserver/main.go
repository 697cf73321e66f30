package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"match-go/internal/config"
	"match-go/internal/handlers/apiserver"
	appKafka "match-go/internal/kafka"
	kafkaHandlers "match-go/internal/kafka/handlers"
	"match-go/internal/middleware"
	appRedis "match-go/internal/redis"
	"match-go/internal/services"
	"match-go/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("API server configuration loaded.")

	// 2. Initialize database connection
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("API server database connection established.")

	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Failed to migrate database tables: %v", err)
	}
	log.Println("API server database migration complete.")

	// 3. Initialize Redis client
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis.")

	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)
	boostRanking := appRedis.NewRedisBoostRanking(redisClient)

	// 4. Initialize repositories
	accountRepo := storage.NewGormAccountRepository(db)
	swipeRepo := storage.NewGormSwipeRepository(db)
	matchRepo := storage.NewGormMatchRepository(db)

	// 5. Initialize Kafka producer
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer kfkProducer.Close()
	log.Println("Kafka producer initialized (API server).")

	// 6. Initialize services
	authService := services.NewAuthService(accountRepo, cfg)
	swipeService, err := services.NewSwipeService(db, accountRepo, swipeRepo, matchRepo, kfkProducer, cfg)
	if err != nil {
		log.Fatalf("Failed to create swipe service: %v", err)
	}
	matchService := services.NewMatchService(matchRepo, accountRepo)
	boostService := services.NewBoostService(accountRepo, boostRanking, cfg.Tiers)

	// 7. Initialize handlers
	authHandler := apiserver.NewAuthHandler(authService, tokenBlacklist)
	swipeHandler := apiserver.NewSwipeHandler(swipeService)
	matchHandler := apiserver.NewMatchHandler(matchService)
	boostHandler := apiserver.NewBoostHandler(boostService)

	// 8. Set up HTTP routes
	r := mux.NewRouter()

	// Public auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklist)

	// Authenticated API routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	// Logout lives under the protected router; it needs the JTI from the
	// validated token.
	apiRouter.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	apiRouter.HandleFunc("/swipes", swipeHandler.RecordSwipe).Methods(http.MethodPost)
	apiRouter.HandleFunc("/swipes", swipeHandler.ResetSwipes).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/matches", matchHandler.ListMatches).Methods(http.MethodGet)
	apiRouter.HandleFunc("/matches/{pairKey}", matchHandler.GetMatch).Methods(http.MethodGet)
	apiRouter.HandleFunc("/boost", boostHandler.ActivateBoost).Methods(http.MethodPost)

	// 9. Start the chat-message consumer that keeps match previews fresh
	chatConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create chat message Kafka consumer: %v", err)
	}
	defer chatConsumer.Close()

	chatMsgLogic := kafkaHandlers.NewChatMessageConsumerLogic(matchService)

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	go func() {
		topics := []string{cfg.Kafka.ChatMessagesTopic}
		log.Printf("Chat message consumer starting, topic: %s, GroupID: %s", cfg.Kafka.ChatMessagesTopic, cfg.Kafka.ConsumerGroup)
		err := chatConsumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, chatMsgLogic.HandleChatMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Chat message consumer error: %v", err)
		}
		log.Println("Chat message consumer goroutine stopped.")
	}()

	// 10. Start the HTTP server with graceful shutdown
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Printf("API server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping API server...")

	cancelConsumers()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API server forced shutdown: %v", err)
	}

	log.Println("API server stopped.")
}
