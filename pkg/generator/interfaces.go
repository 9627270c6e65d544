package generator

import (
	"context"
	"time"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// AssetManager は File API や GCS とのやり取りを担当します。
type AssetManager interface {
	UploadFile(ctx context.Context, fileURI string) (string, error)
	DeleteFile(ctx context.Context, fileURI string) error
}

// ImageGenerator はビジネスロジック層が利用する統合窓口です。
// ベンダー（Gemini / Seedream）ごとの実装がこのインターフェースを満たします。
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error)
}

// Upscaler は生成済み画像の高解像度化を抽象化するインターフェースです。
// pkg/upscale の実装が使用されます。
type Upscaler interface {
	Upscale(ctx context.Context, data []byte, scale int) ([]byte, error)
}

// ImageCacher は、画像関連データをキャッシュするためのインターフェースです。
type ImageCacher interface {
	// Get は、指定されたキーに紐づくアイテムを取得します。
	Get(key string) (any, bool)
	// Set は、指定されたキーと値、有効期限でアイテムを保存します。
	Set(key string, value any, d time.Duration)
}

// HTTPClient は、HTTPリクエストを実行し、URLからデータを取得するためのインターフェースです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
