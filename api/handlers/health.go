package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status reports connectivity of the record store and the counter store
func Status(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		database := "ok"
		counterStore := "ok"

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			database = err.Error()
			status = http.StatusServiceUnavailable
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			counterStore = err.Error()
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"database":     database,
			"counterStore": counterStore,
		})
	}
}
