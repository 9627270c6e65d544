package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// MetadataKeyPrefix は S3 上のメタデータオブジェクトのキー接頭辞です。
const MetadataKeyPrefix = "metadata/"

// S3API は S3Repository が必要とする S3 クライアント操作の部分集合です。
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Repository は S3 バケットの metadata/ 接頭辞配下に JSON オブジェクトとして
// メタデータを保存するリポジトリです。
type S3Repository struct {
	client S3API
	bucket string
}

// NewS3Repository は依存関係を注入してリポジトリを初期化します。
func NewS3Repository(client S3API, bucket string) (*S3Repository, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &S3Repository{client: client, bucket: bucket}, nil
}

// SaveMetadata はレコードを S3 に書き込み、オブジェクトキーを返します。
func (r *S3Repository) SaveMetadata(ctx context.Context, m *domain.GenerationMetadata) (string, error) {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := ensureContentHash(m); err != nil {
		return "", err
	}

	data, err := m.ToJSON()
	if err != nil {
		return "", fmt.Errorf("メタデータのシリアライズに失敗しました: %w", err)
	}

	key := MetadataKeyPrefix + m.MetadataFilename()
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("S3へのメタデータ書き込みに失敗しました (s3://%s/%s): %w", r.bucket, key, err)
	}

	slog.InfoContext(ctx, "生成メタデータをS3に保存しました",
		"bucket", r.bucket, "key", key, "hash", hashPrefix8(m.ContentHash))
	return key, nil
}

// LoadMetadata はオブジェクトキーからレコードを復元します。
func (r *S3Repository) LoadMetadata(ctx context.Context, key string) (*domain.GenerationMetadata, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3からのメタデータ取得に失敗しました (s3://%s/%s): %w", r.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("S3オブジェクト本体の読み込みに失敗しました: %w", err)
	}
	return domain.MetadataFromJSON(data)
}

// MetadataExists は同一ハッシュのレコードを探し、最初に見つかったキーを返します。
func (r *S3Repository) MetadataExists(ctx context.Context, contentHash string) (string, error) {
	if contentHash == "" {
		return "", nil
	}
	keys, err := r.ListByHashPrefix(ctx, hashPrefix8(contentHash))
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", nil
	}
	return keys[0], nil
}

// ListByHashPrefix はキー命名規約 metadata_<ハッシュ8文字>_... に対して
// 接頭辞一致するキー一覧を返します。
func (r *S3Repository) ListByHashPrefix(ctx context.Context, hashPrefix string) ([]string, error) {
	prefix := MetadataKeyPrefix + "metadata_" + hashPrefix

	var keys []string
	var continuation *string
	for {
		out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(r.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("S3メタデータの一覧取得に失敗しました: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".json") {
				keys = append(keys, key)
			}
		}

		if out.NextContinuationToken == nil {
			break
		}
		continuation = out.NextContinuationToken
	}
	return keys, nil
}
