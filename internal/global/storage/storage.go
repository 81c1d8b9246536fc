// Package storage 保存导出文件，配置了 S3 时上传对象存储，否则落到本地目录
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"yqpoint-system/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Store interface {
	// Put 保存文件并返回对象 key
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// URL 返回可下载地址
	URL(ctx context.Context, key string) (string, error)
}

var Default Store

func Init() {
	cfg := config.Get().S3
	if cfg.Bucket == "" {
		Default = NewLocal("./exports", "/exports")
		return
	}
	s, err := NewS3(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	Default = s
}

func objectKey(prefix, name string) string {
	ext := strings.ToLower(path.Ext(name))
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	key := path.Join(strings.Trim(prefix, "/"), fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext))
	return strings.TrimLeft(key, "/")
}

// Local 本地目录存储
type Local struct {
	SaveDir string
	BaseURL string
}

func NewLocal(saveDir, baseURL string) *Local {
	return &Local{SaveDir: saveDir, BaseURL: baseURL}
}

func (l *Local) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(l.SaveDir, os.ModePerm); err != nil {
		return "", err
	}
	key := objectKey("", name)
	if err := os.WriteFile(filepath.Join(l.SaveDir, key), data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

func (l *Local) URL(_ context.Context, key string) (string, error) {
	return strings.TrimRight(l.BaseURL, "/") + "/" + key, nil
}

// S3 兼容 S3 协议的对象存储，下载地址为预签名 GET
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	expires  time.Duration
}

func NewS3(ctx context.Context, cfg config.S3) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("加载 S3 配置失败: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		expires:  15 * time.Minute,
	}, nil
}

func (s *S3) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := objectKey(s.prefix, name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传 %s 失败: %w", key, err)
	}
	return key, nil
}

func (s *S3) URL(ctx context.Context, key string) (string, error) {
	req, err := s3.NewPresignClient(s.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expires
	})
	if err != nil {
		return "", fmt.Errorf("生成预签名 URL 失败: %w", err)
	}
	return req.URL, nil
}
