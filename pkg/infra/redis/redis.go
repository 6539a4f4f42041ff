package redis_wrapper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	ConnectionURL       string `yaml:"connection_url"`
	PoolSize            int    `yaml:"pool_size"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
	ConnectMaxSeconds   int    `yaml:"connect_max_seconds"`
}

// Options converts the config into client options.
func (c *RedisConfig) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.ConnectionURL)
	if err != nil {
		return nil, err
	}

	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	opts.DialTimeout = time.Duration(c.DialTimeoutSeconds) * time.Second
	opts.ReadTimeout = time.Duration(c.ReadTimeoutSeconds) * time.Second
	opts.WriteTimeout = time.Duration(c.WriteTimeoutSeconds) * time.Second
	opts.ConnMaxIdleTime = time.Duration(c.IdleTimeoutSeconds) * time.Second
	return opts, nil
}

// InitRedis create a redis from config
func InitRedis(redisCfg *RedisConfig) (*redis.Client, error) {
	opts, err := redisCfg.Options()
	if err != nil {
		zap.S().Debugf("parse redis url fail: %+v", err)
		return nil, err
	}

	redisClient := redis.NewClient(opts)

	cmd := redisClient.Ping(context.Background())
	if cmd.Err() != nil {
		_ = redisClient.Close()
		return nil, cmd.Err()
	}

	zap.S().Debug("connect to redis successful")
	return redisClient, nil
}

// InitRedisWithBackoff retries InitRedis until it succeeds or ConnectMaxSeconds elapse.
func InitRedisWithBackoff(redisCfg *RedisConfig) (*redis.Client, error) {
	var client *redis.Client
	boff := backoff.NewExponentialBackOff()
	if redisCfg.ConnectMaxSeconds > 0 {
		boff.MaxElapsedTime = time.Duration(redisCfg.ConnectMaxSeconds) * time.Second
	}

	err := backoff.Retry(func() error {
		var err error
		client, err = InitRedis(redisCfg)
		if err != nil {
			zap.S().Warnf("connect redis error %s", err.Error())
		}
		return err
	}, boff)
	if err != nil {
		return nil, err
	}

	return client, nil
}
