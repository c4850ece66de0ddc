// Package s3 处理S3存储操作.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/simholt/hyrax/pkg/configs"
	nlog "github.com/simholt/hyrax/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client

	cfg configs.S3Config
}

// ObjectInfo 上传结果.
type ObjectInfo struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// New 初始化 MinIO 客户端，并确保 buckets 中的桶存在（默认桶总会被检查）.
func New(ctx context.Context, cfg configs.S3Config, buckets ...string) (*Client, error) {
	endpoint := cfg.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("hyrax", configs.AppVersion)

	c := &Client{Client: cli, cfg: cfg}

	seen := map[string]bool{}

	for _, bkt := range append([]string{cfg.BucketName}, buckets...) {
		if bkt == "" || seen[bkt] {
			continue
		}

		seen[bkt] = true

		if err := c.EnsureBucket(ctx, bkt); err != nil {
			return nil, err
		}
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Int("bucket_count", len(seen)).Msg("s3 connected")

	return c, nil
}

// EnsureBucket 桶不存在时创建.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}

	if exists {
		return nil
	}

	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	nlog.Logger().Info().Str("bucket", bucket).Msg("bucket created")

	return nil
}

// UploadFile 把本地文件上传为对象.
func (c *Client) UploadFile(ctx context.Context, bucket, key, path, contentType string) (ObjectInfo, error) {
	bucket = c.cfg.BucketOr(bucket)

	info, err := c.FPutObject(ctx, bucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload %s to %s/%s: %w", path, bucket, key, err)
	}

	return ObjectInfo{Bucket: bucket, Key: key, Size: info.Size, ETag: info.ETag}, nil
}

// PutBytes 写入内存中的对象.
func (c *Client) PutBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (ObjectInfo, error) {
	bucket = c.cfg.BucketOr(bucket)

	info, err := c.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}

	return ObjectInfo{Bucket: bucket, Key: key, Size: info.Size, ETag: info.ETag}, nil
}

// RemoveObject 删除对象；对象不存在不算错误.
func (c *Client) RemoveObject(ctx context.Context, bucket, key string) error {
	bucket = c.cfg.BucketOr(bucket)

	if err := c.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}

	return nil
}

// HealthCheck 简单的健康检查，通过检查默认桶验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.cfg.BucketName)

	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// Config 返回客户端使用的配置.
func (c *Client) Config() configs.S3Config {
	return c.cfg
}
