package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	redisDriver "github.com/redis/go-redis/v9"

	"match-go/internal/config"
	"match-go/internal/handlers/notifyserver"
	appKafka "match-go/internal/kafka"
	appRedis "match-go/internal/redis"
	"match-go/internal/services"
	"match-go/internal/websocket"
)

// The notify server holds the websocket connections and fans match
// events out to both members of a new match. It has no database of its
// own; everything it pushes comes off the match-events topic.
func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Notify server configuration loaded.")

	// 2. Initialize Redis client (token blacklist for ws auth)
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	// 3. Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	log.Println("WebSocket hub started.")

	// 4. Initialize WebSocket handler
	wsHandler := notifyserver.NewWebSocketHandler(hub, tokenBlacklist, cfg)

	// 5. Start the match-events consumer
	matchConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create match events Kafka consumer: %v", err)
	}
	defer matchConsumer.Close()

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	go func() {
		topics := []string{cfg.Kafka.MatchEventsTopic}
		log.Printf("Match events consumer starting, topic: %s, GroupID: %s", cfg.Kafka.MatchEventsTopic, cfg.Kafka.NotifyGroup)
		err := matchConsumer.Consume(consumerCtx, topics, cfg.Kafka.NotifyGroup,
			func(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
				var event services.MatchCreatedEvent
				if err := json.Unmarshal(kafkaMsg.Value, &event); err != nil {
					log.Printf("Failed to unmarshal match event: %v, raw value: %s", err, string(kafkaMsg.Value))
					return nil // skip the bad message, keep the consumer alive
				}
				// Both members get the celebration payload.
				hub.Deliver(&websocket.Notification{ReceiverID: event.UserID1, Payload: kafkaMsg.Value})
				hub.Deliver(&websocket.Notification{ReceiverID: event.UserID2, Payload: kafkaMsg.Value})
				return nil
			})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Match events consumer error: %v", err)
		}
		log.Println("Match events consumer goroutine stopped.")
	}()

	// 6. HTTP routes and server
	serveMux := http.NewServeMux()
	serveMux.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        serveMux,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("Notify server listening on %s, WebSocket path: %s", serverAddr, cfg.Server.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Notify server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping notify server...")

	cancelConsumers()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Notify server forced shutdown: %v", err)
	}
	log.Println("Notify server stopped.")
}
