// Package metadata は生成メタデータレコードの永続化を担当します。
// レコードはコンテンツハッシュをキーとして検索され、同一要求の再生成を
// 短絡させるために使われます。
package metadata

import (
	"context"

	"github.com/shouni/genimage-kit/pkg/domain"
	"github.com/shouni/genimage-kit/pkg/fingerprint"
)

// Repository はメタデータレコードの保存・読込・存在確認の統合窓口です。
type Repository interface {
	// SaveMetadata はレコードを保存し、保存先のキーを返します。
	SaveMetadata(ctx context.Context, m *domain.GenerationMetadata) (string, error)
	// LoadMetadata は保存先キーからレコードを復元します。
	LoadMetadata(ctx context.Context, key string) (*domain.GenerationMetadata, error)
	// MetadataExists は指定のコンテンツハッシュを持つレコードのキーを返します。
	// 見つからない場合は空文字列を返します（エラーではありません）。
	MetadataExists(ctx context.Context, contentHash string) (string, error)
	// ListByHashPrefix はハッシュ接頭辞に一致するレコードのキー一覧を返します。
	ListByHashPrefix(ctx context.Context, hashPrefix string) ([]string, error)
}

// ensureContentHash は未計算のレコードに指紋を補完します。
func ensureContentHash(m *domain.GenerationMetadata) error {
	if m.ContentHash != "" {
		return nil
	}
	hash, err := fingerprint.FromMetadata(m)
	if err != nil {
		return err
	}
	m.ContentHash = hash
	return nil
}

// hashPrefix8 はキー命名に使うハッシュの先頭8文字を返します。
func hashPrefix8(contentHash string) string {
	if len(contentHash) > 8 {
		return contentHash[:8]
	}
	return contentHash
}
