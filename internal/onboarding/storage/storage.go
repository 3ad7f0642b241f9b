// Package storage persists task evidence files either in a MinIO bucket or on
// local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig MinIO连接配置
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// MinIOStore 证明材料对象存储
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOStore connects to MinIO and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// Save 上传到MinIO，返回对象URL
func (s *MinIOStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	return s.publicURL + "/" + s.bucket + "/" + escapeKey(key), nil
}

// Delete 删除对象
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// LocalStore 本地磁盘存储，文件通过 URLPrefix 静态路由访问
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore 创建本地存储
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save 写入本地文件
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	clean := filepath.Clean("/" + key)
	savePath := s.path(clean)
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	dst, err := os.Create(savePath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	_, err = io.Copy(dst, readerWithContext(ctx, r))
	closeErr := dst.Close()
	if err != nil {
		os.Remove(savePath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("write file: %w", closeErr)
	}
	return s.URLPrefix + escapeKey(clean), nil
}

// Delete 删除本地文件，文件不存在时不报错
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// path maps a key onto a file inside Dir.
func (s *LocalStore) path(key string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(filepath.Clean("/"+key)))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
