package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/publish"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
	nlog "github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/rule"
)

// FileService 在线文件（帖子）的增改查与草稿保存.
type FileService struct{ base }

func NewFileService(c context.Context) *FileService { return &FileService{newBase(c)} }

// Create 在已存在的项目下创建草稿文件.
func (s *FileService) Create(ctx context.Context, owner string, req types.CreateFileRequest) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, rule.Errors(err).Error())
	}

	if _, err := db.Get[model.Project](ctx, s.db, req.ProjectID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", req.ProjectID, db.ErrNotFound)
		}

		return nil, err
	}

	ext := req.Extension
	if ext == "" {
		ext = strings.TrimPrefix(path.Ext(req.Name), ".")
	}

	now := s.now()
	f := &model.File{
		ID: newID(now),
		FileFields: model.FileFields{
			Name:             req.Name,
			Type:             req.Type,
			Extension:        ext,
			Content:          req.Content,
			Size:             int64(len(req.Content)),
			ProjectID:        req.ProjectID,
			Owner:            owner,
			Path:             req.Path,
			MimeType:         req.MimeType,
			Platform:         req.Platform,
			Title:            req.Title,
			Status:           model.StatusDraft,
			PlatformSettings: req.PlatformSettings,
			LastModified:     now,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	if err := db.Insert(ctx, s.db, f); err != nil {
		return nil, err
	}

	return f, nil
}

// Get 读取文件.
func (s *FileService) Get(ctx context.Context, id string) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	return db.Get[model.File](ctx, s.db, id)
}

// ListByProject 按项目列出在线文件.
func (s *FileService) ListByProject(ctx context.Context, projectID string, limit int) (types.FileListResponse, error) {
	if err := s.ready(); err != nil {
		return types.FileListResponse{}, err
	}

	rows, err := db.Find[model.File](ctx, s.db, db.Query{
		Index: "project_id",
		Value: projectID,
		Order: "updated_at DESC",
		Limit: clampLimit(limit),
	})
	if err != nil {
		return types.FileListResponse{}, err
	}

	return types.FileListResponse{Total: len(rows), Items: rows}, nil
}

// SaveDraft 写入自动保存的草稿字段.
// posted 与 posting 的帖子不可编辑，返回 ErrInvalidTransition；scheduled 的帖子编辑后
// 必须仍能通过发布校验，否则返回 *publish.ValidationError 且不写入.
func (s *FileService) SaveDraft(ctx context.Context, fileID string, draft types.FileDraft) error {
	if err := s.ready(); err != nil {
		return err
	}

	if draft.Empty() {
		return nil
	}

	f, err := db.Get[model.File](ctx, s.db, fileID)
	if err != nil {
		return err
	}

	if publish.Terminal(f.Status) || f.Status == model.StatusPosting {
		return fmt.Errorf("edit %s post: %w", f.Status, publish.ErrInvalidTransition)
	}

	status := f.Status

	columns := []string{"last_modified", "updated_at"}

	if draft.Content != nil {
		f.Content = *draft.Content
		f.Size = int64(len(f.Content))
		columns = append(columns, "content", "size")
	}

	if draft.Title != nil {
		f.Title = *draft.Title
		columns = append(columns, "title")
	}

	if draft.PlatformSettings != nil {
		f.PlatformSettings = *draft.PlatformSettings
		columns = append(columns, "platform_settings")
	}

	if status == model.StatusScheduled {
		if err := publish.Validate(f, s.lc.ContentLimit()); err != nil {
			return err
		}
	}

	now := s.now()
	f.LastModified, f.UpdatedAt = now, now

	// 条件更新：读取之后状态可能已被提交或定时改变
	n, err := db.Save(ctx, s.db, db.Query{Index: "status", Value: status}, f, columns...)
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("edit %s post: file %s changed state concurrently: %w", status, fileID, publish.ErrInvalidTransition)
	}

	nlog.Logger().Debug().Str("file", fileID).Strs("columns", columns).Msg("draft saved")

	return nil
}
