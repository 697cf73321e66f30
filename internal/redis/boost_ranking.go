package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"match-go/internal/services"

	"github.com/redis/go-redis/v9"
)

const boostRankingKey = "boost:ranking"

// redisBoostRanking implements services.BoostRanking on a Redis sorted
// set. Members are user IDs, scores are boost expiry times (unix
// seconds), which is the candidate-ranking document the profile side
// sorts boosted users by.
type redisBoostRanking struct {
	client *redis.Client
}

// NewRedisBoostRanking creates a Redis-backed boost ranking mirror.
func NewRedisBoostRanking(client *redis.Client) services.BoostRanking {
	return &redisBoostRanking{client: client}
}

// SetBoost records (or refreshes) the boost expiry for a user.
func (r *redisBoostRanking) SetBoost(ctx context.Context, userID uint, expiresAt time.Time) error {
	member := strconv.FormatUint(uint64(userID), 10)
	err := r.client.ZAdd(ctx, boostRankingKey, redis.Z{
		Score:  float64(expiresAt.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to mirror boost for user %d: %w", userID, err)
	}
	return nil
}

// ActiveBoosts returns the IDs of users whose boost has not expired,
// pruning expired members while it is at it.
func (r *redisBoostRanking) ActiveBoosts(ctx context.Context) ([]uint, error) {
	now := time.Now().Unix()

	// Lazy cleanup: drop everything that expired before now.
	if err := r.client.ZRemRangeByScore(ctx, boostRankingKey, "-inf", strconv.FormatInt(now, 10)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired boosts: %w", err)
	}

	members, err := r.client.ZRangeByScore(ctx, boostRankingKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read active boosts: %w", err)
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			continue // skip malformed members rather than failing the read
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
