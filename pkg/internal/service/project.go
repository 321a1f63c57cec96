package service

import (
	"context"
	"fmt"

	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
	"github.com/yeisme/postvault/pkg/rule"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ProjectService 在线项目的增改查；删除走 TrashService.
type ProjectService struct{ base }

func NewProjectService(c context.Context) *ProjectService { return &ProjectService{newBase(c)} }

// Create 创建项目，owner 为当前用户.
func (s *ProjectService) Create(ctx context.Context, owner string, req types.CreateProjectRequest) (*model.Project, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, rule.Errors(err).Error())
	}

	now := s.now()
	p := &model.Project{
		ID: newID(now),
		ProjectFields: model.ProjectFields{
			Name:          req.Name,
			Description:   req.Description,
			Status:        req.Status,
			Budget:        req.Budget,
			ProjectNumber: req.ProjectNumber,
			Owner:         owner,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	if err := db.Insert(ctx, s.db, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Get 读取项目.
func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	return db.Get[model.Project](ctx, s.db, id)
}

// List 列出 owner 的项目，owner 为空时列出全部.
func (s *ProjectService) List(ctx context.Context, owner string, limit int) (types.ProjectListResponse, error) {
	if err := s.ready(); err != nil {
		return types.ProjectListResponse{}, err
	}

	q := db.Query{Order: "updated_at DESC", Limit: clampLimit(limit)}
	if owner != "" {
		q.Index, q.Value = "owner", owner
	}

	rows, err := db.Find[model.Project](ctx, s.db, q)
	if err != nil {
		return types.ProjectListResponse{}, err
	}

	return types.ProjectListResponse{Total: len(rows), Items: rows}, nil
}

// Update 更新项目字段，nil 字段保持不变.
func (s *ProjectService) Update(ctx context.Context, id string, req types.UpdateProjectRequest) (*model.Project, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, rule.Errors(err).Error())
	}

	p, err := db.Get[model.Project](ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}

	if req.Description != nil {
		p.Description = *req.Description
	}

	if req.Status != nil {
		p.Status = *req.Status
	}

	if req.Budget != nil {
		p.Budget = *req.Budget
	}

	if req.ProjectNumber != nil {
		p.ProjectNumber = *req.ProjectNumber
	}

	p.UpdatedAt = s.now()

	if _, err := db.Save(ctx, s.db, db.Query{}, p); err != nil {
		return nil, err
	}

	return p, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
