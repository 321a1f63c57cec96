// Package s3 处理S3存储操作，发布归档适配器通过它写入帖子快照.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/postvault/pkg/configs"
	nlog "github.com/yeisme/postvault/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client
	cfg configs.S3Config
}

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	c := *cfg

	endpoint := c.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		c.Endpoint = u.Host

		if u.Scheme == "https" {
			c.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKeyID, c.SecretAccessKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("postvault", configs.AppVersion)

	if c.BucketName != "" {
		exists, err := cli.BucketExists(ctx, c.BucketName)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", c.BucketName, err)
		}

		if !exists {
			if err := cli.MakeBucket(ctx, c.BucketName, minio.MakeBucketOptions{Region: c.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", c.BucketName, err)
			}

			nlog.Logger().Info().Str("bucket", c.BucketName).Msg("bucket created")
		}
	}

	nlog.Logger().Info().Str("endpoint", c.Endpoint).Str("bucket", c.BucketName).Msg("s3 connected")

	return &Client{Client: cli, cfg: c}, nil
}

// PutBytes 写入一个对象，返回对象 key 与版本号（未开启版本控制时为空）.
func (c *Client) PutBytes(ctx context.Context, key string, body []byte, contentType string, meta map[string]string) (minio.UploadInfo, error) {
	info, err := c.PutObject(ctx, c.cfg.BucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return info, nil
}

// ObjectURL 返回对象访问地址.
func (c *Client) ObjectURL(key string) string {
	return c.cfg.ObjectURL(key)
}

// HealthCheck 简单的健康检查，通过检查桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.cfg.BucketName)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// GetConfig 返回客户端使用的配置.
func (c *Client) GetConfig() configs.S3Config {
	return c.cfg
}
