package queue

import (
	"context"

	"labdesk/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	_, err := RDB.Ping(ctx).Result()
	if err != nil {
		zap.L().Fatal("Could not connect to Redis", zap.String("addr", config.AppConfig.RedisAddr), zap.Error(err))
	}
	zap.L().Info("Successfully connected to Redis!")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		zap.L().Info("Redis connection closed.")
	}
}
