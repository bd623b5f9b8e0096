package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/logger"
	"go.uber.org/zap"
)

// ObjectStore 知识库文件的对象存储镜像。
// 未配置provider时为nil，调用方需判空降级到本地磁盘。
type ObjectStore struct {
	client *minio.Client
	bucket string
}

var globalStore *ObjectStore

// InitObjectStore 初始化对象存储，provider为空时跳过
func InitObjectStore() error {
	cfg := config.AppConfig.Storage
	if cfg.Provider != "minio" && cfg.Provider != "s3" {
		logger.Info("对象存储未配置，知识库文件仅存本地磁盘")
		return nil
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("对象存储endpoint未配置")
	}

	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("创建minio客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("检查bucket失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			errStr := err.Error()
			if !strings.Contains(errStr, "BucketAlreadyExists") &&
				!strings.Contains(errStr, "BucketAlreadyOwnedByYou") {
				return fmt.Errorf("创建bucket %s 失败: %w", cfg.Bucket, err)
			}
		}
	}

	globalStore = &ObjectStore{client: client, bucket: cfg.Bucket}
	logger.Info("对象存储初始化成功",
		zap.String("endpoint", endpoint),
		zap.String("bucket", cfg.Bucket))
	return nil
}

// GetObjectStore 获取全局对象存储实例，未初始化时返回nil
func GetObjectStore() *ObjectStore {
	return globalStore
}

// PutKnowledgeFile 上传知识库文件镜像，对象键为 knowledge/<documentID>/<fileName>
func (s *ObjectStore) PutKnowledgeFile(ctx context.Context, documentID, fileName string, r io.Reader, size int64, contentType string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("对象存储未初始化")
	}
	objectKey := fmt.Sprintf("knowledge/%s/%s", documentID, fileName)
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// GetKnowledgeFile 读取知识库文件镜像
func (s *ObjectStore) GetKnowledgeFile(ctx context.Context, documentID, fileName string) (io.ReadCloser, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("对象存储未初始化")
	}
	objectKey := fmt.Sprintf("knowledge/%s/%s", documentID, fileName)
	return s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
}

// DeleteKnowledgeFile 删除知识库文件镜像
func (s *ObjectStore) DeleteKnowledgeFile(ctx context.Context, documentID, fileName string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("对象存储未初始化")
	}
	objectKey := fmt.Sprintf("knowledge/%s/%s", documentID, fileName)
	return s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}

// PresignedURL 生成预签名下载链接
func (s *ObjectStore) PresignedURL(ctx context.Context, documentID, fileName string, expires time.Duration) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("对象存储未初始化")
	}
	if expires == 0 {
		expires = 24 * time.Hour
	}
	objectKey := fmt.Sprintf("knowledge/%s/%s", documentID, fileName)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expires, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// HealthCheck 探活
func (s *ObjectStore) HealthCheck(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("对象存储未初始化")
	}
	_, err := s.client.ListBuckets(ctx)
	return err
}
