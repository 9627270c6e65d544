// Package upscale は Vertex AI Imagen による画像の高解像度化（2倍・4倍）を
// 提供します。アップスケールは Vertex AI バックエンドでのみサポートされます。
package upscale

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel はアップスケールに使用するデフォルトの Imagen モデルです。
const DefaultModel = "imagen-3.0-generate-002"

// API は genai クライアントのアップスケール呼び出しを抽象化するインターフェースです。
// *genai.Models がこのインターフェースを満たします。
type API interface {
	UpscaleImage(ctx context.Context, model string, image *genai.Image, upscaleFactor string, config *genai.UpscaleImageConfig) (*genai.UpscaleImageResponse, error)
}

// Upscaler は画像バイト列を指定倍率で高解像度化します。
type Upscaler struct {
	api   API
	model string
}

// NewUpscaler は依存関係を注入して Upscaler を初期化します。
// model に空文字を渡すと DefaultModel を使用します。
func NewUpscaler(api API, model string) (*Upscaler, error) {
	if api == nil {
		return nil, fmt.Errorf("api is required")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Upscaler{api: api, model: model}, nil
}

// NewVertexUpscaler は genai クライアントから Upscaler を構築します。
func NewVertexUpscaler(client *genai.Client, model string) (*Upscaler, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	return NewUpscaler(client.Models, model)
}

// FactorForScale は倍率の整数値を API の upscaleFactor 文字列に変換します。
// サポートされる倍率は 2 と 4 のみです。
func FactorForScale(scale int) (string, error) {
	switch scale {
	case 2:
		return "x2", nil
	case 4:
		return "x4", nil
	}
	return "", fmt.Errorf("未対応のアップスケール倍率です: %d (2 または 4 を指定してください)", scale)
}

// Upscale は画像を指定倍率で高解像度化し、結果のバイト列を返します。
func (u *Upscaler) Upscale(ctx context.Context, data []byte, scale int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("アップスケール対象の画像データが空です")
	}
	factor, err := FactorForScale(scale)
	if err != nil {
		return nil, err
	}

	resp, err := u.api.UpscaleImage(ctx, u.model, &genai.Image{ImageBytes: data}, factor, &genai.UpscaleImageConfig{
		IncludeRAIReason: true,
		OutputMIMEType:   "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("アップスケールAPIの呼び出しに失敗しました: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("アップスケール応答に画像が含まれていません")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}
