package generator

import (
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// FactoryConfig はベンダー別ジェネレーターの構築に必要な依存関係です。
// グローバル状態は持たず、すべて呼び出し側が明示的に注入します。
type FactoryConfig struct {
	// Gemini 用
	GeminiCore   *GeminiImageCore
	GeminiModel  string
	GeminiClient gemini.GenerativeModel

	// Seedream 用
	SeedreamClient SeedreamAPI
	SeedreamModel  string

	// URL 応答の取得用（Seedream のみ使用、nil 可）
	HTTPClient HTTPClient
}

// New はモデル列挙値を境界で一度だけ解決し、対応するジェネレーターを返します。
// ベンダー名の文字列比較はここより深い層には存在しません。
func New(model domain.Model, cfg FactoryConfig) (ImageGenerator, error) {
	switch model {
	case domain.ModelGemini:
		return NewGeminiGenerator(cfg.GeminiCore, cfg.GeminiClient, cfg.GeminiModel)
	case domain.ModelSeedream:
		return NewSeedreamGenerator(cfg.SeedreamClient, cfg.HTTPClient, cfg.SeedreamModel)
	}
	return nil, fmt.Errorf("ジェネレーターを構築できないモデルです: %q", model)
}
