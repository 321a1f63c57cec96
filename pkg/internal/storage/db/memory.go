package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/yeisme/postvault/pkg/configs"
)

// OpenMemory 打开一个以 name 区分的共享内存 sqlite 库并完成迁移.
// 单连接，事务内必须使用 Tx 传入的客户端.
func OpenMemory(ctx context.Context, name string) (*Client, error) {
	cfg := &configs.DBConfig{
		Type:         configs.SQLite,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}

	c, err := Open(ctx, cfg, fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name)))
	if err != nil {
		return nil, err
	}

	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()

		return nil, err
	}

	return c, nil
}
