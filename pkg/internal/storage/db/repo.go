package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound 记录不存在.
var ErrNotFound = errors.New("record not found")

// Query 描述一次按索引的查询.
//
// Index/Value 走等值索引，Where/Args 追加额外条件，Order 例如 "deleted_at DESC".
type Query struct {
	Index string
	Value any
	Where string
	Args  []any
	Order string
	Limit int
}

// apply 将查询条件附加到 tx 上.
func (q Query) apply(tx *gorm.DB) *gorm.DB {
	if q.Index != "" {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: q.Index}, Value: q.Value})
	}

	if q.Where != "" {
		tx = tx.Where(q.Where, q.Args...)
	}

	if q.Order != "" {
		tx = tx.Order(q.Order)
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	return tx
}

// Get 按主键 id 读取一条记录，不存在返回 ErrNotFound.
func Get[T any](ctx context.Context, c *Client, id string) (*T, error) {
	var rec T

	err := c.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get %T %s: %w", rec, id, err)
	}

	return &rec, nil
}

// Insert 插入一条记录.
func Insert[T any](ctx context.Context, c *Client, rec *T) error {
	if err := c.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert %T: %w", rec, err)
	}

	return nil
}

// Delete 按主键 id 删除记录，记录不存在时返回 ErrNotFound.
func Delete[T any](ctx context.Context, c *Client, id string) error {
	res := c.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return fmt.Errorf("delete %T %s: %w", *new(T), id, res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteWhere 删除符合条件的全部记录，返回删除行数.
func DeleteWhere[T any](ctx context.Context, c *Client, q Query) (int64, error) {
	q.Order, q.Limit = "", 0

	res := q.apply(c.WithContext(ctx)).Delete(new(T))
	if res.Error != nil {
		return 0, fmt.Errorf("delete %T: %w", *new(T), res.Error)
	}

	return res.RowsAffected, nil
}

// Find 按查询条件返回记录列表.
func Find[T any](ctx context.Context, c *Client, q Query) ([]T, error) {
	var out []T

	if err := q.apply(c.WithContext(ctx).Model(new(T))).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query %T by %q: %w", *new(T), q.Index, err)
	}

	return out, nil
}

// First 返回符合条件的第一条记录，不存在返回 ErrNotFound.
func First[T any](ctx context.Context, c *Client, q Query) (*T, error) {
	q.Limit = 1

	rows, err := Find[T](ctx, c, q)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return &rows[0], nil
}

// Count 统计符合条件的记录数.
func Count[T any](ctx context.Context, c *Client, q Query) (int64, error) {
	var n int64

	q.Order, q.Limit = "", 0
	if err := q.apply(c.WithContext(ctx).Model(new(T))).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %T: %w", *new(T), err)
	}

	return n, nil
}

// Update 对符合条件的记录执行字段更新，返回受影响行数.
// 调用方用 RowsAffected 判断条件更新（如状态迁移）是否抢占成功.
func Update[T any](ctx context.Context, c *Client, q Query, fields map[string]any) (int64, error) {
	q.Order, q.Limit = "", 0

	res := q.apply(c.WithContext(ctx).Model(new(T))).Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("update %T: %w", *new(T), res.Error)
	}

	return res.RowsAffected, nil
}

// Save 按主键更新 rec 的指定列（列为空时更新全部非主键列），q 追加条件，返回受影响行数.
// 与 Update 不同，Save 走模型序列化器，适合包含 JSON 列的更新.
func Save[T any](ctx context.Context, c *Client, q Query, rec *T, columns ...string) (int64, error) {
	q.Order, q.Limit = "", 0

	tx := q.apply(c.WithContext(ctx).Model(rec))
	if len(columns) > 0 {
		tx = tx.Select(columns)
	} else {
		tx = tx.Select("*").Omit(clause.PrimaryKey)
	}

	res := tx.Updates(rec)
	if res.Error != nil {
		return 0, fmt.Errorf("save %T: %w", rec, res.Error)
	}

	return res.RowsAffected, nil
}

// Sum 对符合条件记录的 column 求和，无记录时为 0.
func Sum[T any](ctx context.Context, c *Client, q Query, column string) (int64, error) {
	var total int64

	q.Order, q.Limit = "", 0

	err := q.apply(c.WithContext(ctx).Model(new(T))).
		Select("COALESCE(SUM(" + column + "), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum %T.%s: %w", *new(T), column, err)
	}

	return total, nil
}

// Tx 在一个事务中执行 fn，fn 返回错误时回滚.
func (c *Client) Tx(ctx context.Context, fn func(tx *Client) error) error {
	return c.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Client{DB: tx})
	})
}
