package db

import (
	"context"
	"fmt"

	"github.com/yeisme/postvault/pkg/internal/model"
	nlog "github.com/yeisme/postvault/pkg/log"
)

// Migrate 自动迁移全部模型的表结构.
func (c *Client) Migrate(ctx context.Context) error {
	if err := c.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	nlog.Logger().Info().Int("models", len(model.All())).Msg("数据库迁移完成")

	return nil
}
