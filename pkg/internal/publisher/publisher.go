// Package publisher 把已通过校验的帖子投递到外部平台.
//
// 每个平台一个适配器（webhook、archive），由 Registry 按平台名路由，并统一
// 包裹限流（x/time/rate）与熔断（gobreaker）. 请求携带幂等键，适配器应保证
// 同一幂等键重复提交不会产生重复帖子.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/yeisme/postvault/pkg/configs"
	"github.com/yeisme/postvault/pkg/internal/model"
)

var (
	// ErrUnknownPlatform 平台未配置.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrRejected 平台明确拒绝（4xx），重试无意义.
	ErrRejected = errors.New("rejected by platform")
)

// Request 一次提交.
type Request struct {
	Key         string                 `json:"idempotency_key"`
	FileID      string                 `json:"file_id"`
	Platform    string                 `json:"platform"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content,omitempty"`
	Settings    model.PlatformSettings `json:"settings"`
	ScheduledAt *time.Time             `json:"scheduled_at,omitempty"`
}

// Result 平台返回的远端标识.
type Result struct {
	RemoteID  string `json:"id"`
	RemoteURL string `json:"url,omitempty"`
}

// Publisher 平台适配器.
type Publisher interface {
	Submit(ctx context.Context, req Request) (Result, error)
}

// Func 允许普通函数作为 Publisher.
type Func func(ctx context.Context, req Request) (Result, error)

// Submit 实现 Publisher.
func (f Func) Submit(ctx context.Context, req Request) (Result, error) { return f(ctx, req) }

// NewRequest 由文件记录构造提交请求.
func NewRequest(f *model.File, key string) Request {
	return Request{
		Key:         key,
		FileID:      f.ID,
		Platform:    f.Platform,
		Title:       f.Title,
		Content:     f.Content,
		Settings:    f.PlatformSettings,
		ScheduledAt: f.ScheduledAt,
	}
}

// Deps 适配器可用的外部依赖.
type Deps struct {
	Objects ObjectWriter
}

// Factory 根据平台配置创建适配器.
type Factory func(name string, cfg configs.PlatformConfig, deps Deps) (Publisher, error)

var factories = map[configs.PublisherType]Factory{}

// RegisterFactory 注册适配器工厂.
func RegisterFactory(t configs.PublisherType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的适配器类型.
func GetRegisteredTypes() []configs.PublisherType {
	types := make([]configs.PublisherType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

func build(name string, cfg configs.PlatformConfig, deps Deps) (Publisher, error) {
	f, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("platform %s: unsupported publisher type %q", name, cfg.Type)
	}

	return f(name, cfg, deps)
}
