package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idempotency:"

// IdempotencyMiddleware replays the stored response of a mutating request
// that repeats an X-Correlation-ID seen within ttl. Keys are scoped to the
// caller, the method and the path, so reusing an ID on another request runs it.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPatch, fiber.MethodPut, fiber.MethodDelete:
		default:
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			return c.Next()
		}

		key := idempotencyKey(CurrentUserID(c), c.Method(), c.Path(), correlationID)
		ctx := c.UserContext()

		cached, err := redisClient.HGetAll(ctx, key).Result()
		if err == nil && cached["body"] != "" {
			c.Set("X-Idempotent-Replay", "true")
			if ct := cached["content_type"]; ct != "" {
				c.Set(fiber.HeaderContentType, ct)
			}
			status, err := strconv.Atoi(cached["status"])
			if err != nil {
				status = fiber.StatusOK
			}
			return c.Status(status).SendString(cached["body"])
		}

		if err := c.Next(); err != nil {
			return err
		}

		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			body := string(c.Response().Body())
			if body != "" {
				contentType := string(c.Response().Header.ContentType())
				go func() {
					bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					pipe := redisClient.TxPipeline()
					pipe.HSet(bgCtx, key, "status", statusCode, "content_type", contentType, "body", body)
					pipe.Expire(bgCtx, key, ttl)
					_, _ = pipe.Exec(bgCtx)
				}()
			}
		}

		return nil
	}
}

func idempotencyKey(userID, method, path, correlationID string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", idempotencyKeyPrefix, userID, method, path, correlationID)
}
