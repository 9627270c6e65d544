// Package maintenance は S3 バケットの一括保守（重複排除・ハッシュ
// メタデータのバックフィル）を提供します。重複の判定自体は pkg/dedupe の
// 純粋関数に委譲し、このパッケージはストレージとのやり取りと報告を担います。
package maintenance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/shouni/genimage-kit/pkg/domain"
	"github.com/shouni/genimage-kit/pkg/images"
)

// HashMetadataKey はオブジェクトメタデータ上のコンテンツハッシュのキー名です。
// pkg/images が書き込み時に付与する注釈と同じキーを参照します。
const HashMetadataKey = images.HashMetadataKey

// S3API は保守処理が必要とする S3 クライアント操作の部分集合です。
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ObjectStore は S3 バケット1個に対する保守操作の実装です。
type S3ObjectStore struct {
	client S3API
	bucket string
}

// NewS3ObjectStore は依存関係を注入してストアを初期化します。
func NewS3ObjectStore(client S3API, bucket string) (*S3ObjectStore, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &S3ObjectStore{client: client, bucket: bucket}, nil
}

// Listing はハッシュ注釈付きオブジェクトの一覧結果です。
// NoHashCount は sha256 メタデータのないオブジェクト（判定対象外）の数です。
type Listing struct {
	Objects     []domain.StoredObject
	TotalCount  int
	NoHashCount int
}

// ListObjects は接頭辞配下の全オブジェクトを列挙し、各オブジェクトの
// sha256 メタデータを取得して返します。ディレクトリマーカーと
// ハッシュなしオブジェクトは判定対象から除外されます。
func (s *S3ObjectStore) ListObjects(ctx context.Context, prefix string) (*Listing, error) {
	listing := &Listing{}

	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("S3オブジェクトの一覧取得に失敗しました: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			listing.TotalCount++

			hash, err := s.objectHash(ctx, key)
			if err != nil {
				slog.WarnContext(ctx, "オブジェクトメタデータの取得に失敗しました", "key", key, "error", err)
				listing.NoHashCount++
				continue
			}
			if hash == "" {
				listing.NoHashCount++
				continue
			}

			listing.Objects = append(listing.Objects, domain.StoredObject{
				Key:          key,
				ContentHash:  hash,
				LastModified: aws.ToTime(obj.LastModified),
				SizeBytes:    aws.ToInt64(obj.Size),
			})
		}

		if out.NextContinuationToken == nil {
			break
		}
		continuation = out.NextContinuationToken
	}

	return listing, nil
}

func (s *S3ObjectStore) objectHash(ctx context.Context, key string) (string, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	return head.Metadata[HashMetadataKey], nil
}

// DeleteObjects はキー一覧を1件ずつ削除し、成功数と失敗数を返します。
// 個別の失敗は記録して続行します。
func (s *S3ObjectStore) DeleteObjects(ctx context.Context, keys []string) (deleted, failed int) {
	for _, key := range keys {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			slog.ErrorContext(ctx, "オブジェクトの削除に失敗しました", "key", key, "error", err)
			failed++
			continue
		}
		deleted++
	}
	return deleted, failed
}

// BackfillSummary はハッシュバックフィルの結果集計です。
type BackfillSummary struct {
	Updated int
	Skipped int
	Errors  int
}

// BackfillHashes は sha256 メタデータのないオブジェクトに対し、本体を取得して
// ハッシュを計算し、メタデータ差し替えコピーで付与します。付与済みの
// オブジェクトはスキップします。
func (s *S3ObjectStore) BackfillHashes(ctx context.Context, prefix string) (*BackfillSummary, error) {
	summary := &BackfillSummary{}

	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("S3オブジェクトの一覧取得に失敗しました: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}

			switch err := s.backfillObject(ctx, key); {
			case err == nil:
				summary.Updated++
				slog.InfoContext(ctx, "sha256メタデータを付与しました", "key", key)
			case err == errAlreadyHashed:
				summary.Skipped++
			default:
				summary.Errors++
				slog.ErrorContext(ctx, "バックフィルに失敗しました", "key", key, "error", err)
			}
		}

		if out.NextContinuationToken == nil {
			break
		}
		continuation = out.NextContinuationToken
	}

	return summary, nil
}

var errAlreadyHashed = fmt.Errorf("already hashed")

func (s *S3ObjectStore) backfillObject(ctx context.Context, key string) error {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	if head.Metadata[HashMetadataKey] != "" {
		return errAlreadyHashed
	}

	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	content, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(content)

	newMetadata := make(map[string]string, len(head.Metadata)+1)
	for k, v := range head.Metadata {
		newMetadata[k] = v
	}
	newMetadata[HashMetadataKey] = hex.EncodeToString(sum[:])

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(s.bucket + "/" + key),
		Metadata:          newMetadata,
		MetadataDirective: types.MetadataDirectiveReplace,
		ContentType:       head.ContentType,
	})
	return err
}
