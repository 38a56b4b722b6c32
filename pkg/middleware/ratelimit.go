package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
	// KeyFunc extracts the rate limit key from the request; defaults to the
	// client IP.
	KeyFunc func(r *http.Request) string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "arbor:ratelimit",
	})
}

// RateLimit rejects requests over the configured rate with a JSON 429.
func RateLimit(config RateLimitConfig) mux.MiddlewareFunc {
	period := config.Period
	if period == 0 {
		period = time.Second
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(r *http.Request) string {
			if ip := r.Header.Get("X-Real-IP"); ip != "" {
				return ip
			}
			return r.RemoteAddr
		}
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}

	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  int64(config.RequestsPerPeriod),
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiterCtx, err := instance.Get(r.Context(), keyFunc(r))
			if err != nil {
				// The limiter failing must not take the service down.
				next.ServeHTTP(w, r)
				return
			}
			if limiterCtx.Reached {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
