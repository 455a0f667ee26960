package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"catalog-go/internal/config"
	"catalog-go/internal/constants"
)

// ErrObjectNotFound 存储桶中没有该对象
var ErrObjectNotFound = errors.New("object not found")

// ObjectMeta 对象元数据
type ObjectMeta struct {
	ContentType  string
	Size         int64
	LastModified time.Time
}

// Store 图片对象存储客户端
// HeadObject结果走独立的带TTL的LRU，图片元数据查询远多于图片本体下载
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	meta   *expirable.LRU[string, ObjectMeta]
}

func NewStore(cfg config.StorageConfig) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	options := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg, options),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		meta:   expirable.NewLRU[string, ObjectMeta](constants.AssetMetaEntries, nil, constants.AssetMetaTTL),
	}, nil
}

// objectKey 拼接配置的前缀
func (s *Store) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// Fetch 下载对象，调用方负责关闭返回的Body
func (s *Store) Fetch(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ObjectMeta{}, ErrObjectNotFound
		}
		return nil, ObjectMeta{}, fmt.Errorf("failed to download from S3: %w", err)
	}

	meta := ObjectMeta{
		ContentType: aws.ToString(result.ContentType),
		Size:        aws.ToInt64(result.ContentLength),
	}
	if result.LastModified != nil {
		meta.LastModified = *result.LastModified
	}

	s.meta.Add(key, meta)
	return result.Body, meta, nil
}

// Head 查询对象元数据，命中LRU时不访问存储桶
func (s *Store) Head(ctx context.Context, key string) (ObjectMeta, error) {
	if meta, ok := s.meta.Get(key); ok {
		return meta, nil
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return ObjectMeta{}, ErrObjectNotFound
		}
		return ObjectMeta{}, fmt.Errorf("failed to get object metadata: %w", err)
	}

	meta := ObjectMeta{
		ContentType: aws.ToString(result.ContentType),
		Size:        aws.ToInt64(result.ContentLength),
	}
	if result.LastModified != nil {
		meta.LastModified = *result.LastModified
	}

	s.meta.Add(key, meta)
	return meta, nil
}

// TestConnection 测试存储桶连通性
func (s *Store) TestConnection(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to S3 bucket: %w", err)
	}

	log.Printf("[Assets] 对象存储连接正常: %s", s.bucket)
	return nil
}
