package middlewares

import (
	"backoffice/applog"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid"
)

const RequestIDHeader = "X-Request-ID"

// Auth accepts a "Bearer <token>" Authorization header or token cookie and
// exposes the stored session as the payload header and user_id key.
func Auth(redis *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisPayload, err := ValidateToken(c.Request.Context(), bearer(c), redis)
		if err != nil {
			log.Println(err)
			applog.Security(c, "auth.rejected", nil)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			c.Abort()
			return
		}

		c.Request.Header.Set("payload", redisPayload)

		var session struct {
			User struct {
				Id int64 `json:"id"`
			} `json:"user"`
		}
		if err := json.Unmarshal([]byte(redisPayload), &session); err == nil {
			c.Set("user_id", session.User.Id)
		}

		c.Next()
	}
}

func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return h
	}
	token, _ := c.Cookie("token")
	return token
}

// Token returns the raw session token of the request, without the Bearer prefix.
func Token(c *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(bearer(c), "Bearer "))
}

func ValidateToken(ctx context.Context, authorizationHeader string, redis *redis.Client) (string, error) {
	if !strings.HasPrefix(authorizationHeader, "Bearer ") {
		return "", errors.New("invalid-token")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, "Bearer "))

	redisPayload, err := redis.Get(ctx, tokenString).Result()
	if err != nil {
		return "", err
	}

	if redisPayload == "" {
		return "", errors.New("empty-payload")
	}

	return redisPayload, nil
}

// RequestID tags every request with an id, reusing a sane incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.FromString(id); err != nil {
			id = uuid.Must(uuid.NewV4()).String()
		}

		c.Set(applog.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
