package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"resume-match-go/internal/matching"
	"resume-match-go/internal/types"
)

// 确保IndexHandle实现了向量索引接口
var _ matching.VectorIndex = (*IndexHandle)(nil)

// IndexHandle 是向量集合的惰性初始化句柄。首次使用时创建集合并等待其就绪，
// 并发调用方共享同一次初始化；初始化失败不会被缓存，下次调用重新尝试。
type IndexHandle struct {
	qdrant *Qdrant
	logger *log.Logger

	pollInterval time.Duration
	readyTimeout time.Duration

	mu    sync.Mutex
	ready bool
}

// IndexHandleOption 索引句柄的配置选项
type IndexHandleOption func(*IndexHandle)

// WithReadyPollInterval 设置就绪轮询间隔
func WithReadyPollInterval(interval time.Duration) IndexHandleOption {
	return func(h *IndexHandle) {
		if interval > 0 {
			h.pollInterval = interval
		}
	}
}

// WithReadyTimeout 设置等待集合就绪的时间上限
func WithReadyTimeout(timeout time.Duration) IndexHandleOption {
	return func(h *IndexHandle) {
		if timeout > 0 {
			h.readyTimeout = timeout
		}
	}
}

// WithIndexHandleLogger 设置日志记录器
func WithIndexHandleLogger(logger *log.Logger) IndexHandleOption {
	return func(h *IndexHandle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewIndexHandle 创建向量集合句柄，构造阶段不访问服务器
func NewIndexHandle(qdrant *Qdrant, opts ...IndexHandleOption) (*IndexHandle, error) {
	if qdrant == nil {
		return nil, fmt.Errorf("qdrant客户端不能为空")
	}

	h := &IndexHandle{
		qdrant:       qdrant,
		logger:       log.New(io.Discard, "", 0),
		pollInterval: 2 * time.Second,
		readyTimeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// ensureReady 单飞初始化：创建集合并轮询状态直到就绪或超时。
// 持锁期间并发调用方阻塞等待，成功后置位ready，之后的调用零开销返回。
func (h *IndexHandle) ensureReady(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready {
		return nil
	}

	if err := h.qdrant.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("初始化向量集合失败: %w", err)
	}

	deadline := time.Now().Add(h.readyTimeout)
	for {
		ready, err := h.qdrant.CollectionReady(ctx)
		if err != nil {
			return fmt.Errorf("查询集合状态失败: %w", err)
		}
		if ready {
			h.ready = true
			h.logger.Printf("向量集合已就绪")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("等待向量集合就绪超时 (%s)", h.readyTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.pollInterval):
		}
	}
}

// UpsertRecord 写入或覆盖向量点，首次调用时完成集合初始化
func (h *IndexHandle) UpsertRecord(ctx context.Context, record *types.VectorRecord) error {
	if err := h.ensureReady(ctx); err != nil {
		return err
	}
	return h.qdrant.UpsertRecord(ctx, record)
}

// Query 在指定类别内搜索最相似的向量点
func (h *IndexHandle) Query(ctx context.Context, vector []float64, topK int, kind string) ([]types.VectorHit, error) {
	if err := h.ensureReady(ctx); err != nil {
		return nil, err
	}
	return h.qdrant.Query(ctx, vector, topK, kind)
}

// DeleteRecord 删除指定类别与归属ID的向量点
func (h *IndexHandle) DeleteRecord(ctx context.Context, kind, ownerID string) error {
	if err := h.ensureReady(ctx); err != nil {
		return err
	}
	return h.qdrant.DeleteRecord(ctx, kind, ownerID)
}
