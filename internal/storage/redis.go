package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/matching"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// 确保Redis实现了向量缓存接口
var _ matching.EmbeddingCache = (*Redis)(nil)

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// jobVectorCacheTTL 返回岗位向量缓存的过期时间
func (r *Redis) jobVectorCacheTTL() time.Duration {
	hours := r.config.JobVectorCacheTTLHours
	if hours <= 0 {
		hours = constants.DefaultJobVectorCacheTTLHours
	}
	return time.Duration(hours) * time.Hour
}

// GetJobVector 读取缓存的岗位向量，未命中时返回 matching.ErrNotFound
func (r *Redis) GetJobVector(ctx context.Context, jobID string) ([]float64, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}

	key := constants.JobVectorCacheKeyPrefix + jobID
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, matching.ErrNotFound
		}
		return nil, fmt.Errorf("读取岗位向量缓存失败: %w", err)
	}

	var vector []float64
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, fmt.Errorf("解析岗位向量缓存失败: %w", err)
	}
	return vector, nil
}

// SetJobVector 缓存岗位向量并设置过期时间
func (r *Redis) SetJobVector(ctx context.Context, jobID string, vector []float64) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化岗位向量失败: %w", err)
	}

	key := constants.JobVectorCacheKeyPrefix + jobID
	return r.Client.Set(ctx, key, data, r.jobVectorCacheTTL()).Err()
}

// DeleteJobVector 删除缓存的岗位向量
func (r *Redis) DeleteJobVector(ctx context.Context, jobID string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Del(ctx, constants.JobVectorCacheKeyPrefix+jobID).Err()
}
