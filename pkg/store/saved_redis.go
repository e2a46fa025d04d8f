package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const savedKeyPrefix = "homeportal:saved:"

// RedisSavedStore keeps each user's saved listings in a Redis set.
type RedisSavedStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisSavedStore builds a Redis-backed saved-listings store.
func NewRedisSavedStore(addr, password string) *RedisSavedStore {
	return &RedisSavedStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		timeout: 3 * time.Second,
	}
}

func savedKey(userID string) string {
	return savedKeyPrefix + userID
}

// Save marks a listing as saved for the user.
func (s *RedisSavedStore) Save(ctx context.Context, userID, listingID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.SAdd(ctx, savedKey(userID), listingID).Err(); err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

// Unsave removes a listing from the user's saved set.
func (s *RedisSavedStore) Unsave(ctx context.Context, userID, listingID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.SRem(ctx, savedKey(userID), listingID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unsave listing: %w", err)
	}
	return nil
}

// ListSaved returns the user's saved listing ids.
func (s *RedisSavedStore) ListSaved(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ids, err := s.client.SMembers(ctx, savedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list saved: %w", err)
	}
	return ids, nil
}

// IsSaved reports whether the user saved the listing.
func (s *RedisSavedStore) IsSaved(ctx context.Context, userID, listingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.client.SIsMember(ctx, savedKey(userID), listingID).Result()
	if err != nil {
		return false, fmt.Errorf("check saved: %w", err)
	}
	return ok, nil
}
