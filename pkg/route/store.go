package route

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultRulesKey is the Redis key holding the persisted rules.
const DefaultRulesKey = "route:rules"

// RuleStore persists the flushed rule table.
type RuleStore interface {
	// Load returns the persisted rules, or none if nothing was flushed yet.
	Load(ctx context.Context) ([]Rule, error)

	// Save replaces the persisted rules.
	Save(ctx context.Context, rules []Rule) error
}

// Flush persists the current rules of t.
func Flush(ctx context.Context, t *Table, store RuleStore) error {
	if err := store.Save(ctx, t.Rules()); err != nil {
		return fmt.Errorf("flush rules: %w", err)
	}
	return nil
}

// RedisRuleStore keeps the rules as one JSON document in Redis.
type RedisRuleStore struct {
	redis *redis.Client
	key   string
}

// NewRedisRuleStore creates a store under key (DefaultRulesKey when empty).
func NewRedisRuleStore(redisClient *redis.Client, key string) *RedisRuleStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultRulesKey
	}
	return &RedisRuleStore{redis: redisClient, key: key}
}

// Load reads the rules from Redis.
func (s *RedisRuleStore) Load(ctx context.Context) ([]Rule, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	return rules, nil
}

// Save writes the rules to Redis without expiry.
func (s *RedisRuleStore) Save(ctx context.Context, rules []Rule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// MemoryRuleStore keeps the rules in process memory.
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules []Rule
	saves int
}

// NewMemoryRuleStore creates an empty store.
func NewMemoryRuleStore() *MemoryRuleStore {
	return &MemoryRuleStore{}
}

// Load returns a copy of the stored rules.
func (s *MemoryRuleStore) Load(context.Context) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Rule(nil), s.rules...), nil
}

// Save replaces the stored rules.
func (s *MemoryRuleStore) Save(_ context.Context, rules []Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]Rule(nil), rules...)
	s.saves++
	return nil
}

// Saves returns how often Save was called.
func (s *MemoryRuleStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
