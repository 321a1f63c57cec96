// Package types 定义 HTTP 与服务层之间传递的请求、响应结构.
package types

import (
	"github.com/shopspring/decimal"

	"github.com/yeisme/postvault/pkg/internal/model"
)

// CreateProjectRequest 创建项目请求.
type CreateProjectRequest struct {
	Name          string          `json:"name"           rule:"notblank,max=255"`
	Description   string          `json:"description"`
	Status        string          `json:"status"         rule:"omitempty,max=32"`
	Budget        decimal.Decimal `json:"budget"`
	ProjectNumber string          `json:"project_number" rule:"omitempty,max=64"`
}

// UpdateProjectRequest 更新项目请求，nil 字段保持不变.
type UpdateProjectRequest struct {
	Name          *string          `json:"name"           rule:"omitempty,notblank,max=255"`
	Description   *string          `json:"description"`
	Status        *string          `json:"status"         rule:"omitempty,max=32"`
	Budget        *decimal.Decimal `json:"budget"`
	ProjectNumber *string          `json:"project_number" rule:"omitempty,max=64"`
}

// ProjectListResponse 项目列表.
type ProjectListResponse struct {
	Total int             `json:"total"`
	Items []model.Project `json:"items"`
}
