package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stashd/stashd/internal/model"
)

const (
	listingKeyPrefix = "files:"

	// ListingTTL bounds staleness for cached listings; mutations
	// invalidate eagerly, the TTL is a backstop.
	ListingTTL = 5 * time.Minute
)

func listingKey(ownerID, filterHash string) string {
	return listingKeyPrefix + ownerID + ":" + filterHash
}

// GetListing retrieves a cached file listing for an owner and filter hash.
// Returns ErrCacheMiss if absent.
func (c *Cache) GetListing(ctx context.Context, ownerID, filterHash string) ([]*model.File, error) {
	data, err := c.client.Get(ctx, listingKey(ownerID, filterHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	var files []*model.File
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, ErrCacheMiss
	}

	return files, nil
}

// SetListing caches a file listing for an owner and filter hash.
func (c *Cache) SetListing(ctx context.Context, ownerID, filterHash string, files []*model.File) error {
	data, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	if err := c.client.Set(ctx, listingKey(ownerID, filterHash), data, ListingTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache listing: %w", err)
	}

	return nil
}

// InvalidateListings drops every cached listing for a user. Called
// after a mutation, for each user the mutated file was visible to.
func (c *Cache) InvalidateListings(ctx context.Context, ownerID string) error {
	pattern := listingKeyPrefix + ownerID + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan listing keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete listing keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}
