package publisher

import (
	"context"
	"fmt"
	"path"

	"github.com/bytedance/sonic"
	"github.com/minio/minio-go/v7"

	"github.com/yeisme/postvault/pkg/configs"
)

// ObjectWriter 对象存储写入能力，由 s3.Client 实现.
type ObjectWriter interface {
	PutBytes(ctx context.Context, key string, body []byte, contentType string, meta map[string]string) (minio.UploadInfo, error)
	ObjectURL(key string) string
}

func init() {
	RegisterFactory(configs.PublisherArchive, func(name string, cfg configs.PlatformConfig, deps Deps) (Publisher, error) {
		if deps.Objects == nil {
			return nil, fmt.Errorf("platform %s: archive publisher needs object storage (s3.enabled)", name)
		}

		return NewArchive(name, cfg.Prefix, deps.Objects), nil
	})
}

// Archive 把帖子写成对象存储中的 JSON 文档. 对象键由幂等键决定，
// 重复提交覆盖同一对象.
type Archive struct {
	name    string
	prefix  string
	objects ObjectWriter
}

// NewArchive 创建归档适配器.
func NewArchive(name, prefix string, objects ObjectWriter) *Archive {
	return &Archive{name: name, prefix: prefix, objects: objects}
}

// ObjectKey 返回请求对应的对象键.
func (a *Archive) ObjectKey(req Request) string {
	return path.Join(a.prefix, a.name, req.FileID, req.Key+".json")
}

// Submit 实现 Publisher.
func (a *Archive) Submit(ctx context.Context, req Request) (Result, error) {
	body, err := sonic.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode post: %w", err)
	}

	key := a.ObjectKey(req)

	if _, err := a.objects.PutBytes(ctx, key, body, "application/json", map[string]string{
		"idempotency-key": req.Key,
		"file-id":         req.FileID,
	}); err != nil {
		return Result{}, err
	}

	return Result{RemoteID: key, RemoteURL: a.objects.ObjectURL(key)}, nil
}
