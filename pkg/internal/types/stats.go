package types

// StatsGroupItem 分组聚合项.
type StatsGroupItem struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
	Size  int64  `json:"size"`
}

// StatsOverview 在线内容与回收站的总体统计.
type StatsOverview struct {
	Projects   int64            `json:"projects"`
	Files      int64            `json:"files"`
	TotalSize  int64            `json:"total_size"`
	ByStatus   []StatsGroupItem `json:"by_status"`
	ByPlatform []StatsGroupItem `json:"by_platform"`
	Trash      TrashStats       `json:"trash"`
}

// StatsTrendPoint 趋势点（按日）.
type StatsTrendPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}
