package kafkahandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"match-go/internal/services"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ChatMessageEvent is the payload the chat collaborator publishes for
// every sent message. Only the preview fields matter to the engine.
type ChatMessageEvent struct {
	PairKey   string    `json:"pairKey"`
	SenderID  uint      `json:"senderId"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessageConsumerLogic updates match previews from chat events.
type ChatMessageConsumerLogic struct {
	matchService services.MatchService
}

// NewChatMessageConsumerLogic creates a new ChatMessageConsumerLogic.
func NewChatMessageConsumerLogic(ms services.MatchService) *ChatMessageConsumerLogic {
	if ms == nil {
		log.Panic("MatchService cannot be nil")
	}
	return &ChatMessageConsumerLogic{matchService: ms}
}

// HandleChatMessage is the MessageHandler passed to the Kafka consumer.
// It mutates the existing match's preview fields; a message for an
// unknown match is skipped so the topic does not wedge.
func (h *ChatMessageConsumerLogic) HandleChatMessage(ctx context.Context, msg *kafka.Message) error {
	var event ChatMessageEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Error unmarshalling chat message event (Value: '%s'): %v. Skipping.", string(msg.Value), err)
		return nil // commit the offset for a malformed message
	}

	if event.PairKey == "" {
		log.Printf("Chat message event without a pair key, skipping (Offset %v)", msg.TopicPartition.Offset)
		return nil
	}

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	err := h.matchService.UpdatePreview(ctx, event.PairKey, event.Preview, at)
	if err != nil {
		if errors.Is(err, services.ErrMatchNotFound) {
			log.Printf("Chat message for unknown match %s, skipping.", event.PairKey)
			return nil
		}
		return err // retryable
	}
	return nil
}
