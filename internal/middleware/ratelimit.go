package middleware

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"damara/internal/models"
	"damara/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ErrNoLimiterStore is returned when rate limiting runs without Redis.
var ErrNoLimiterStore = errors.New("rate limit store not configured")

// Limit is a write budget: at most Max requests per Window for one actor.
type Limit struct {
	Resource string
	Max      int
	Window   time.Duration
	// PerPost splits the budget by the :id route param, so hammering one
	// post's join button leaves the actor's other posts alone.
	PerPost bool
	// FailClosed answers 503 while Redis is unreachable instead of letting
	// the write through.
	FailClosed bool
}

// Usage is a budget's state after counting one request.
type Usage struct {
	Count     int64
	Remaining int
	ResetIn   time.Duration
	Allowed   bool
}

// Key is the Redis key of the budget for actor, optionally scoped to postID.
func (l Limit) Key(actor, postID string) string {
	key := "rl:" + l.Resource + ":" + actor
	if l.PerPost && postID != "" {
		key += ":post:" + postID
	}
	return key
}

// Hit counts one request against key. The window starts with the first
// request and is not extended by later ones.
func Hit(ctx context.Context, rdb *redis.Client, key string, l Limit) (Usage, error) {
	if rdb == nil {
		return Usage{}, ErrNoLimiterStore
	}

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("ratelimit").Inc()
		return Usage{}, err
	}

	reset := ttl.Val()
	if reset < 0 {
		// First hit, or a key left without expiry by an earlier failure.
		if err := rdb.Expire(ctx, key, l.Window).Err(); err != nil {
			observability.RedisErrorRate.WithLabelValues("ratelimit").Inc()
			return Usage{}, err
		}
		reset = l.Window
	}

	count := incr.Val()
	return Usage{
		Count:     count,
		Remaining: max(l.Max-int(count), 0),
		ResetIn:   reset,
		Allowed:   count <= int64(l.Max),
	}, nil
}

// actor identifies who spends the budget: the token subject when the
// request is authenticated, otherwise the client IP.
func actor(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(string); ok && uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.IP()
}

// RateLimit enforces l on a route. Every answer carries X-RateLimit-Limit
// and X-RateLimit-Remaining; a 429 also carries Retry-After.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		usage, err := Hit(ctx, rdb, l.Key(actor(c), c.Params("id")), l)
		if err != nil {
			observability.Logger.WarnContext(ctx, "rate limit unavailable",
				"resource", l.Resource, "path", c.Path(), "error", err)
			if l.FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "rate limit unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(usage.Remaining))
		if !usage.Allowed {
			observability.RateLimitRejections.WithLabelValues(l.Resource).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(usage.ResetIn.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, try again later",
				Code:  models.CodeRateLimited,
			})
		}
		return c.Next()
	}
}
