package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSlotPrefix   = "shopsync:import:"
	redisCancelSuffix = ":cancelled"
	// redisSlotTTL bounds abandoned slots, for example after a crash mid
	// import.
	redisSlotTTL = 24 * time.Hour
)

// RedisRegistry shares import state between instances through Redis.
type RedisRegistry struct {
	client *redis.Client
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry creates a RedisRegistry and verifies connectivity.
func NewRedisRegistry(ctx context.Context, addr, password string, db int) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisRegistry{client: client}, nil
}

func slotKey(slot string) string {
	return redisSlotPrefix + slot
}

func cancelKey(slot string) string {
	return redisSlotPrefix + slot + redisCancelSuffix
}

func (r *RedisRegistry) Begin(ctx context.Context, slot string, info ProcessingInfo) error {
	current, found, err := r.Get(ctx, slot)
	if err != nil {
		return err
	}
	if found && current.Running {
		return errSlotBusy
	}

	info.Running = true
	if err := r.write(ctx, slot, info); err != nil {
		return err
	}
	return r.client.Del(ctx, cancelKey(slot)).Err()
}

func (r *RedisRegistry) Update(ctx context.Context, slot string, info ProcessingInfo) error {
	current, found, err := r.Get(ctx, slot)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	info.Running = current.Running
	return r.write(ctx, slot, info)
}

func (r *RedisRegistry) Get(ctx context.Context, slot string) (ProcessingInfo, bool, error) {
	data, err := r.client.Get(ctx, slotKey(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ProcessingInfo{}, false, nil
		}
		return ProcessingInfo{}, false, fmt.Errorf("read slot %s: %w", slot, err)
	}

	var info ProcessingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ProcessingInfo{}, false, fmt.Errorf("decode slot %s: %w", slot, err)
	}
	return info, true, nil
}

func (r *RedisRegistry) Finish(ctx context.Context, slot string, info ProcessingInfo) error {
	info.Running = false
	if info.FinishedUtc == nil {
		now := time.Now().UTC()
		info.FinishedUtc = &now
	}
	return r.write(ctx, slot, info)
}

func (r *RedisRegistry) Cancel(ctx context.Context, slot string) error {
	return r.client.Set(ctx, cancelKey(slot), "1", redisSlotTTL).Err()
}

func (r *RedisRegistry) IsCancelled(ctx context.Context, slot string) (bool, error) {
	n, err := r.client.Exists(ctx, cancelKey(slot)).Result()
	if err != nil {
		return false, fmt.Errorf("read cancel flag %s: %w", slot, err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisRegistry) write(ctx context.Context, slot string, info ProcessingInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", slot, err)
	}
	return r.client.Set(ctx, slotKey(slot), data, redisSlotTTL).Err()
}
