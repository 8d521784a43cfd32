package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"memory_promo/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Хранилище победителей в Redis:
// winners:seq - счетчик id, winners:code:<код> - запись по коду, winners:list:<коллекция> - последние записи
type RedisWinnerStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisWinnerStore(rdb *redis.Client) *RedisWinnerStore {
	return &RedisWinnerStore{rdb: rdb, now: time.Now}
}

const redisSeqKey = "winners:seq"

func redisCodeKey(code string) string       { return "winners:code:" + code }
func redisListKey(collection string) string { return "winners:list:" + collection }

func (s *RedisWinnerStore) Add(ctx context.Context, collection string, rec domain.WinnerSubmission) error {
	id, err := s.rdb.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	w := domain.Winner{
		ID:               id,
		Collection:       collection,
		WinnerSubmission: rec,
		CreatedAt:        s.now().UTC(),
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, redisCodeKey(rec.PrizeCode), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrDuplicatePrizeCode
	}
	if err := s.rdb.LPush(ctx, redisListKey(collection), data).Err(); err != nil {
		// откатываем код, чтобы повторная попытка не упиралась в дубликат
		s.rdb.Del(context.Background(), redisCodeKey(rec.PrizeCode))
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

func (s *RedisWinnerStore) Recent(ctx context.Context, collection string, limit int) ([]*domain.Winner, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := s.rdb.LRange(ctx, redisListKey(collection), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Winner, 0, len(items))
	for _, item := range items {
		var w domain.Winner
		if err := json.Unmarshal([]byte(item), &w); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, nil
}

func (s *RedisWinnerStore) GetByPrizeCode(ctx context.Context, code string) (*domain.Winner, error) {
	data, err := s.rdb.Get(ctx, redisCodeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrWinnerNotFound
	}
	if err != nil {
		return nil, err
	}
	var w domain.Winner
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *RedisWinnerStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.rdb.LLen(ctx, redisListKey(collection)).Result()
}
