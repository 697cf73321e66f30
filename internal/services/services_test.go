package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"match-go/internal/config"
	"match-go/internal/kafka"
	"match-go/internal/models"
	"match-go/internal/storage"
)

// newTestDB opens an isolated in-memory SQLite database pinned to a
// single connection, so concurrent callers serialize instead of each
// seeing a private empty database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := storage.AutoMigrateTables(db); err != nil {
		t.Fatalf("failed to migrate test tables: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecretKey: "test-secret",
			JWTExpiry:    time.Hour,
		},
		Kafka: config.KafkaConfig{
			MatchEventsTopic:  "match-events",
			ChatMessagesTopic: "chat-messages",
		},
		Quota: config.QuotaConfig{
			Timezone:           "UTC",
			UnlimitedThreshold: 1000,
			TxRetryAttempts:    3,
			TxRetryBackoff:     5 * time.Millisecond,
		},
		Tiers: config.TierMap{
			"free":    {DailyLimit: 3},
			"plus":    {DailyLimit: 100, Boost: true, BoostDuration: 30 * time.Minute},
			"premium": {DailyLimit: 1000, Boost: true, BoostDuration: time.Hour},
		},
	}
}

func createTestAccount(t *testing.T, db *gorm.DB, username, tier string) *models.Account {
	t.Helper()

	account := &models.Account{
		Username:     username,
		PasswordHash: "x",
		Email:        username + "@example.com",
		Nickname:     username,
		Tier:         tier,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account %s: %v", username, err)
	}
	return account
}

// capturedMessage is one payload recorded by the fake producer.
type capturedMessage struct {
	Topic   string
	Key     []byte
	Payload []byte
}

// fakeProducer records published messages in memory.
type fakeProducer struct {
	mu       sync.Mutex
	messages []capturedMessage
}

func (p *fakeProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, capturedMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *fakeProducer) Close() {}

func (p *fakeProducer) captured() []capturedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// fakeRanking records boost mirror writes in memory.
type fakeRanking struct {
	mu      sync.Mutex
	entries map[uint]time.Time
}

func newFakeRanking() *fakeRanking {
	return &fakeRanking{entries: make(map[uint]time.Time)}
}

func (r *fakeRanking) SetBoost(_ context.Context, userID uint, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = expiresAt
	return nil
}

func (r *fakeRanking) ActiveBoosts(_ context.Context) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var ids []uint
	for id, until := range r.entries {
		if until.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// newTestSwipeService wires a SwipeService against the given database.
func newTestSwipeService(t *testing.T, db *gorm.DB, producer *fakeProducer) SwipeService {
	t.Helper()

	cfg := testConfig()
	accountRepo := storage.NewGormAccountRepository(db)
	swipeRepo := storage.NewGormSwipeRepository(db)
	matchRepo := storage.NewGormMatchRepository(db)

	var prod kafka.MessageProducer
	if producer != nil {
		prod = producer
	}
	svc, err := NewSwipeService(db, accountRepo, swipeRepo, matchRepo, prod, cfg)
	if err != nil {
		t.Fatalf("failed to create swipe service: %v", err)
	}
	return svc
}
