package redis

import (
	"context"
	"fmt"

	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	r "github.com/redis/go-redis/v9"
)

type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

var redisClient *r.Client

func InitRedis(ctx context.Context, conf *Redis) {
	var err error
	redisClient, err = initRedis(ctx, conf)
	if err != nil {
		logger.Fatalf(ctx, "init redis fail err: %+v", err)
	}
}

// InitRedisNew opens a dedicated client, used by blocking consumers that
// must not starve the shared pool.
func InitRedisNew(ctx context.Context, conf *Redis) *r.Client {
	rnew, err := initRedis(ctx, conf)
	if err != nil {
		logger.Fatalf(ctx, "init redis fail err: %+v", err)
	}
	return rnew
}

func initRedis(ctx context.Context, conf *Redis) (*r.Client, error) {
	client := r.NewClient(&r.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Password: conf.Password,
		DB:       conf.DB,
	})
	client.AddHook(&logHook{})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func CloseRedis(ctx context.Context) {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Errorf(ctx, "close redis err: %+v", err)
		}
	}
}

func GetClient() *r.Client {
	return redisClient
}
