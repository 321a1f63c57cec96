package configs

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// S3Config 对象存储（MinIO/S3）配置，archive 发布平台把帖子写入此 bucket.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"          rule:"required_if=Enabled true"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required_if=Enabled true"`
	Region          string `mapstructure:"region"`
	// PublicURL 对外访问前缀（如 CDN 域名），为空时使用 path-style 的 endpoint 地址
	PublicURL string `mapstructure:"public_url" rule:"omitempty,url"`
}

// ObjectURL 返回对象的访问地址.
func (c *S3Config) ObjectURL(key string) string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/") + "/" + key
	}

	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.Endpoint, c.BucketName, key)
}

func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.endpoint", "localhost:9000")
	v.SetDefault("s3.access_key_id", "minioadmin")
	v.SetDefault("s3.secret_access_key", "minioadmin")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket_name", "postvault")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.public_url", "")
}
