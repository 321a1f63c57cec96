package model

import "time"

// AttemptState 幂等记录状态.
type AttemptState string

const (
	AttemptInFlight  AttemptState = "in_flight"
	AttemptSucceeded AttemptState = "succeeded"
	AttemptFailed    AttemptState = "failed"
)

// PublishAttempt 以幂等键记录一次对外提交.
// 同一份内容（文件、正文、定时）只会对平台成功提交一次.
type PublishAttempt struct {
	Key       string       `gorm:"column:id;primaryKey;size:32" json:"key"`
	FileID    string       `gorm:"size:26;index"      json:"file_id"`
	Platform  string       `gorm:"size:64"            json:"platform"`
	State     AttemptState `gorm:"size:16;index"      json:"state"`
	RemoteID  string       `gorm:"size:255"           json:"remote_id,omitempty"`
	RemoteURL string       `gorm:"size:1024"          json:"remote_url,omitempty"`
	Error     string       `gorm:"type:text"          json:"error,omitempty"`
	Attempts  int          `json:"attempts"`
	CreatedAt time.Time    `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName 表名.
func (PublishAttempt) TableName() string { return "publish_attempts" }

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{
		&Project{},
		&File{},
		&TrashedProject{},
		&TrashedFile{},
		&PublishAttempt{},
	}
}
