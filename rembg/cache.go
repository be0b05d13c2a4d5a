package rembg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// SessionCache 按模型名缓存 Session，同一模型只加载一次。
// 并发首次请求共享同一次加载；加载失败不缓存，之后可以重试。
type SessionCache struct {
	backend Backend

	mu       sync.RWMutex
	sessions map[string]Session
	group    singleflight.Group
	loads    atomic.Int64
}

func NewSessionCache(backend Backend) *SessionCache {
	return &SessionCache{
		backend:  backend,
		sessions: make(map[string]Session),
	}
}

func (c *SessionCache) Backend() Backend {
	return c.backend
}

// GetOrCreate 返回模型对应的 Session，首次调用时加载。
// 加载与调用方的 ctx 解耦：某个调用方取消只会让它自己返回，共享同一次加载的其它调用方继续等待。
func (c *SessionCache) GetOrCreate(ctx context.Context, model string) (Session, error) {
	if s, ok := c.lookup(model); ok {
		return s, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(model, func() (interface{}, error) {
		if s, ok := c.lookup(model); ok {
			return s, nil
		}

		start := time.Now()
		s, err := c.backend.Load(loadCtx, model)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, model, err)
		}
		if s == nil {
			return nil, fmt.Errorf("%w: %s: backend returned no session", ErrModelLoad, model)
		}

		c.mu.Lock()
		c.sessions[model] = s
		c.mu.Unlock()
		c.loads.Add(1)

		slog.Info("model loaded", "model", model, "elapsed", time.Since(start))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, model, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("shared model load", "model", model)
		}
		return res.Val.(Session), nil
	}
}

func (c *SessionCache) lookup(model string) (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[model]
	return s, ok
}

// Loads 返回成功加载的次数
func (c *SessionCache) Loads() int64 {
	return c.loads.Load()
}

func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Close 释放实现了 io.Closer 的 Session，只在进程退出时调用
func (c *SessionCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, s := range c.sessions {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
		delete(c.sessions, name)
	}
	return errors.Join(errs...)
}
