package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 回收站领域 --------------------------

// EntityKind 回收站条目类型.
type EntityKind string

const (
	EntityProject EntityKind = "project"
	EntityFile    EntityKind = "file"
)

// ProjectTrashedPayload 项目移入回收站.
type ProjectTrashedPayload struct {
	ProjectID  string   `json:"project_id"`
	SnapshotID string   `json:"snapshot_id"`
	Name       string   `json:"name"`
	DeletedBy  string   `json:"deleted_by"`
	FileIDs    []string `json:"file_ids,omitempty"`
}

// ProjectRestoredPayload 项目恢复，ProjectID 为新标识.
type ProjectRestoredPayload struct {
	SnapshotID string `json:"snapshot_id"`
	OriginalID string `json:"original_id"`
	ProjectID  string `json:"project_id"`
	Files      int    `json:"files"`
}

// FileTrashedPayload 文件移入回收站.
type FileTrashedPayload struct {
	FileID     string `json:"file_id"`
	SnapshotID string `json:"snapshot_id"`
	ProjectID  string `json:"project_id"`
	DeletedBy  string `json:"deleted_by"`
	Size       int64  `json:"size"`
}

// FileRestoredPayload 文件恢复.
type FileRestoredPayload struct {
	SnapshotID string `json:"snapshot_id"`
	OriginalID string `json:"original_id"`
	FileID     string `json:"file_id"`
	ProjectID  string `json:"project_id"`
}

// TrashPurgedPayload 条目被永久删除.
type TrashPurgedPayload struct {
	Kind       EntityKind `json:"kind"`
	SnapshotID string     `json:"snapshot_id"`
	OriginalID string     `json:"original_id,omitempty"`
}

// TrashSweptPayload 过期清理结果.
type TrashSweptPayload struct {
	DeletedProjects int       `json:"deleted_projects"`
	DeletedFiles    int       `json:"deleted_files"`
	Cutoff          time.Time `json:"cutoff"`
}

// -------------------------- 发布领域 --------------------------

// PostScheduledPayload 文件已排期.
type PostScheduledPayload struct {
	FileID      string    `json:"file_id"`
	Platform    string    `json:"platform"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// PostPostedPayload 提交成功.
type PostPostedPayload struct {
	FileID   string `json:"file_id"`
	Platform string `json:"platform"`
	PostID   string `json:"post_id"`
	PostURL  string `json:"post_url,omitempty"`
	Key      string `json:"idempotency_key"`
}

// PostFailedPayload 提交失败.
type PostFailedPayload struct {
	FileID   string `json:"file_id"`
	Platform string `json:"platform"`
	Error    string `json:"error"`
	Key      string `json:"idempotency_key,omitempty"`
}
