// Package images は生成画像本体の永続化を担当します。S3 実装は書き込み時に
// コンテンツハッシュをオブジェクトメタデータとして付与し、後段の重複排除が
// 本体を再取得せずにハッシュを参照できるようにします。
package images

import "context"

// KeyPrefix は S3 上の画像オブジェクトのキー接頭辞です。
const KeyPrefix = "images/"

// HashMetadataKey はオブジェクトメタデータ上のコンテンツハッシュのキー名です。
const HashMetadataKey = "sha256"

// Repository は画像本体の保存・読込の統合窓口です。
type Repository interface {
	// SaveImage は画像データを保存し、保存先のキーを返します。
	SaveImage(ctx context.Context, data []byte, filename string) (string, error)
	// LoadImage は保存先キーから画像データを復元します。
	LoadImage(ctx context.Context, key string) ([]byte, error)
}
