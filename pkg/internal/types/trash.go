package types

import "github.com/yeisme/postvault/pkg/internal/model"

// TrashStats 回收站统计.
type TrashStats struct {
	ProjectCount         int64 `json:"project_count"`
	FileCount            int64 `json:"file_count"`
	TotalSize            int64 `json:"total_size"`
	OldestItemAgeDays    int   `json:"oldest_item_age_days"`
	ItemsNearExpiryCount int64 `json:"items_near_expiry_count"`
}

// CleanupResult 过期清理结果.
type CleanupResult struct {
	DeletedProjects int `json:"deleted_projects"`
	DeletedFiles    int `json:"deleted_files"`
}

// TrashListQuery 回收站列表查询；UserID 优先于 ProjectID，二者皆空时返回全部.
type TrashListQuery struct {
	UserID    string `form:"user_id"`
	ProjectID string `form:"project_id"`
	Limit     int    `form:"limit"      rule:"omitempty,min=1,max=1000"`
}

// DeletedProjectsResponse 已删除项目列表.
type DeletedProjectsResponse struct {
	Total int                    `json:"total"`
	Items []model.TrashedProject `json:"items"`
}

// DeletedFilesResponse 已删除文件列表.
type DeletedFilesResponse struct {
	Total int                 `json:"total"`
	Items []model.TrashedFile `json:"items"`
}

// DeleteRequest 移入回收站请求（删除人默认取当前用户）.
type DeleteRequest struct {
	DeletedBy string `json:"deleted_by" rule:"omitempty,max=255"`
}

// RestoreFileRequest 恢复文件请求，未指定目标时恢复到原项目.
type RestoreFileRequest struct {
	TargetProjectID string `json:"target_project_id"`
}

// RestoreResponse 恢复结果，ID 为新建的在线实体 ID.
type RestoreResponse struct {
	ID string `json:"id"`
}

// TrashActionResponse 通用动作响应.
type TrashActionResponse struct {
	Affected int    `json:"affected"`
	Message  string `json:"message,omitempty"`
}
