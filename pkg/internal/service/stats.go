package service

import (
	"context"
	"time"

	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
)

const (
	defaultTrendDays = 14
	maxTrendDays     = 90
)

// StatsService 在线内容的聚合统计.
type StatsService struct{ base }

func NewStatsService(c context.Context) *StatsService { return &StatsService{newBase(c)} }

// 通用聚合结果行.
type aggRow struct {
	Key string `gorm:"column:k"`
	Cnt int64  `gorm:"column:cnt"`
	Sum int64  `gorm:"column:sum"`
}

// Overview 统计 owner 的项目、文件、发布状态分布与回收站，owner 为空时统计全部.
func (s *StatsService) Overview(ctx context.Context, owner string) (types.StatsOverview, error) {
	var out types.StatsOverview

	if err := s.ready(); err != nil {
		return out, err
	}

	q := db.Query{}
	if owner != "" {
		q.Index, q.Value = "owner", owner
	}

	var err error

	if out.Projects, err = db.Count[model.Project](ctx, s.db, q); err != nil {
		return out, err
	}

	if out.Files, err = db.Count[model.File](ctx, s.db, q); err != nil {
		return out, err
	}

	if out.TotalSize, err = db.Sum[model.File](ctx, s.db, q, "size"); err != nil {
		return out, err
	}

	if out.ByStatus, err = s.group(ctx, owner, "status"); err != nil {
		return out, err
	}

	if out.ByPlatform, err = s.group(ctx, owner, "platform"); err != nil {
		return out, err
	}

	trash := &TrashService{s.base}
	if out.Trash, err = trash.GetTrashStats(ctx, owner); err != nil {
		return out, err
	}

	return out, nil
}

// group 按列聚合在线文件数量与大小，column 只接受内部常量.
func (s *StatsService) group(ctx context.Context, owner, column string) ([]types.StatsGroupItem, error) {
	var rows []aggRow

	tx := s.db.WithContext(ctx).Model(&model.File{}).
		Select("COALESCE(NULLIF(" + column + ",''),'unknown') AS k, COUNT(*) AS cnt, COALESCE(SUM(size),0) AS sum")
	if owner != "" {
		tx = tx.Where("owner = ?", owner)
	}

	if err := tx.Group("k").Order("k").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.StatsGroupItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.StatsGroupItem{Key: r.Key, Count: r.Cnt, Size: r.Sum})
	}

	return out, nil
}

// PostedTrend 最近 days 天每天成功发布的帖子数（按 updated_at 的 UTC 日期），缺失日期补 0.
func (s *StatsService) PostedTrend(ctx context.Context, owner string, days int) ([]types.StatsTrendPoint, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if days <= 0 || days > maxTrendDays {
		days = defaultTrendDays
	}

	start := s.now().AddDate(0, 0, -days+1).Truncate(day)

	q := db.Query{
		Index: "status",
		Value: model.StatusPosted,
		Where: "updated_at >= ?",
		Args:  []any{start},
	}
	if owner != "" {
		q.Where += " AND owner = ?"
		q.Args = append(q.Args, owner)
	}

	// 按天分组的 SQL 方言差异较大，帖子量不大，在内存中分桶
	posted, err := db.Find[model.File](ctx, s.db, q)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, days)
	for i := range posted {
		counts[posted[i].UpdatedAt.UTC().Format(time.DateOnly)]++
	}

	out := make([]types.StatsTrendPoint, 0, days)
	for i := range days {
		d := start.AddDate(0, 0, i).Format(time.DateOnly)
		out = append(out, types.StatsTrendPoint{Date: d, Count: counts[d]})
	}

	return out, nil
}
