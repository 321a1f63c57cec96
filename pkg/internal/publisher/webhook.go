package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/yeisme/postvault/pkg/configs"
)

const maxWebhookResponse = 1 << 20

func init() {
	RegisterFactory(configs.PublisherWebhook, func(name string, cfg configs.PlatformConfig, _ Deps) (Publisher, error) {
		return NewWebhook(name, cfg)
	})
}

// Webhook 以 JSON POST 投递帖子，幂等键放在 Idempotency-Key 头中.
// 响应体须为 {"id": "...", "url": "..."}.
type Webhook struct {
	name   string
	cfg    configs.PlatformConfig
	client *http.Client
}

// NewWebhook 创建 webhook 适配器.
func NewWebhook(name string, cfg configs.PlatformConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("platform %s: webhook url is required", name)
	}

	return &Webhook{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.GetTimeout()},
	}, nil
}

// Submit 实现 Publisher.
func (w *Webhook) Submit(ctx context.Context, req Request) (Result, error) {
	body, err := sonic.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Key)

	if w.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.cfg.Token)
	}

	for k, v := range w.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", w.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponse))
	if err != nil {
		return Result{}, fmt.Errorf("%s: read response: %w", w.name, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Result{}, fmt.Errorf("%s: status %d: %s", w.name, resp.StatusCode, bytes.TrimSpace(raw))
	case resp.StatusCode >= http.StatusBadRequest:
		return Result{}, fmt.Errorf("%w: %s: status %d: %s", ErrRejected, w.name, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var res Result
	if err := sonic.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("%s: decode response: %w", w.name, err)
	}

	if res.RemoteID == "" {
		return Result{}, fmt.Errorf("%s: response has no post id", w.name)
	}

	return res, nil
}
