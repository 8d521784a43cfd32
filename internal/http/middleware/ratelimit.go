package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"memory_promo/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter - лимит запросов в фиксированном окне.
// Счетчики в Redis, если он задан; при ошибке Redis - локальные счетчики процесса.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*counter

	// вызывается на каждый отклоненный запрос (метрика)
	OnLimited func()
}

type counter struct {
	start time.Time
	count int
}

func NewRateLimiter(rdb *redis.Client, limit int, per time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: per,
		now:    time.Now,
		local:  make(map[string]*counter),
	}
}

// Allow учитывает запрос и сообщает, укладывается ли он в лимит
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return true
	}
	if l.rdb != nil {
		n, err := l.incrRedis(ctx, key)
		if err == nil {
			return n <= int64(l.limit)
		}
		logger.Warn("rate limiter redis error, using local counters", "error", err)
	}
	return l.incrLocal(key) <= l.limit
}

func (l *RateLimiter) incrRedis(ctx context.Context, key string) (int64, error) {
	// ключ окна: ratelimit:<ключ>:<номер окна>
	slot := l.now().UnixNano() / int64(l.window)
	rkey := "ratelimit:" + key + ":" + strconv.FormatInt(slot, 10)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, rkey)
		pipe.Expire(ctx, rkey, l.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (l *RateLimiter) incrLocal(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.local[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &counter{start: now}
		l.local[key] = w
	}
	w.count++

	// чистим устаревшие окна, чтобы карта не росла
	if len(l.local) > 10000 {
		for k, v := range l.local {
			if now.Sub(v.start) >= l.window {
				delete(l.local, k)
			}
		}
	}
	return w.count
}

// Middleware ограничивает запросы по IP клиента
func (l *RateLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.Request.Context(), scope+":"+c.ClientIP()) {
			if l.OnLimited != nil {
				l.OnLimited()
			}
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
