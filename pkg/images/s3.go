package images

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API は S3Repository が必要とする S3 クライアント操作の部分集合です。
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Repository は S3 バケットの images/ 接頭辞配下に画像を保存するリポジトリです。
// アップロード時に本体の SHA-256 を sha256 メタデータとして付与するため、
// 重複排除の走査はバックフィルなしでハッシュを参照できます。
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

// SaveImage は画像を S3 に書き込み、オブジェクトキーを返します。
func (r *S3Repository) SaveImage(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("画像データが空です")
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	key := KeyPrefix + filename
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
		Metadata: map[string]string{
			HashMetadataKey:     contentHash,
			"original_filename": filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("S3への画像書き込みに失敗しました (s3://%s/%s): %w", r.bucket, key, err)
	}

	slog.InfoContext(ctx, "生成画像をS3に保存しました",
		"bucket", r.bucket, "key", key, "hash", contentHash[:8], "size_bytes", len(data))
	return key, nil
}

// LoadImage はオブジェクトキーから画像データを復元します。
func (r *S3Repository) LoadImage(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3からの画像取得に失敗しました (s3://%s/%s): %w", r.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("S3オブジェクト本体の読み込みに失敗しました: %w", err)
	}
	return data, nil
}
