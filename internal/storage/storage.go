package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"resume-match-go/internal/config"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 向量数据库与集合句柄
	Qdrant *Qdrant
	Index  *IndexHandle

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// NewStorage 创建存储管理器。MySQL与Qdrant是必需组件，
// MinIO、RabbitMQ、Redis按配置可选初始化，失败时记录警告并继续。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	// MySQL是记录存储，必须可用
	storage.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败: %w", err)
	}

	// Qdrant客户端构造不访问服务器，集合初始化推迟到首次使用
	storage.Qdrant, err = NewQdrant(&cfg.Qdrant)
	if err != nil {
		storage.MySQL.Close()
		return nil, fmt.Errorf("初始化Qdrant失败: %w", err)
	}

	indexOpts := []IndexHandleOption{
		WithIndexHandleLogger(log.New(os.Stderr, "[VectorIndex] ", log.LstdFlags)),
	}
	if cfg.Qdrant.ReadyPollSeconds > 0 {
		indexOpts = append(indexOpts, WithReadyPollInterval(time.Duration(cfg.Qdrant.ReadyPollSeconds)*time.Second))
	}
	if cfg.Qdrant.ReadyTimeoutSeconds > 0 {
		indexOpts = append(indexOpts, WithReadyTimeout(time.Duration(cfg.Qdrant.ReadyTimeoutSeconds)*time.Second))
	}
	storage.Index, err = NewIndexHandle(storage.Qdrant, indexOpts...)
	if err != nil {
		storage.MySQL.Close()
		return nil, fmt.Errorf("创建向量集合句柄失败: %w", err)
	}

	// 初始化MinIO（如果配置了）
	if cfg.MinIO.Endpoint != "" {
		var minioLogger *log.Logger
		if cfg.Logger.Level == "debug" {
			minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
		} else {
			minioLogger = log.New(io.Discard, "", 0)
		}
		storage.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger)
		if err != nil {
			log.Printf("警告: 初始化MinIO失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("警告: 初始化RabbitMQ失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	// 初始化Redis (如果配置了)
	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("警告: 初始化Redis失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if len(initErrors) > 0 {
		log.Printf("警告: 以下可选存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Printf("关闭MySQL连接失败: %v", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("关闭Redis连接失败: %v", err)
		}
	}
	// Qdrant与MinIO基于HTTP客户端，无需显式关闭
}
