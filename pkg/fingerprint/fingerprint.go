// Package fingerprint は生成要求の意味的に重要な入力から決定的な
// コンテンツハッシュ（指紋）を計算します。ハッシュは重複検出と
// 冪等性チェックのキーとして使用されます。
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// Request は指紋計算の対象となるフィールド群です。
// 生成結果の出力先（ファイル名やS3キー）は要求内容と無関係なため含みません。
type Request struct {
	Prompt      string
	Images      []string
	Model       string
	Scale       *int
	ImageSize   string
	APIEndpoint string
	APIModel    string
	APIParams   map[string]any
}

// canonicalForm は正規化済みのハッシュ入力表現です。
// encoding/json はマップキーをソートして出力するため、フィールド順と
// 合わせて一意なバイト列が得られます。
type canonicalForm struct {
	Prompt      string         `json:"prompt"`
	Images      []string       `json:"images"`
	Model       string         `json:"model,omitempty"`
	Scale       *int           `json:"scale,omitempty"`
	ImageSize   string         `json:"image_size,omitempty"`
	APIEndpoint string         `json:"api_endpoint,omitempty"`
	APIModel    string         `json:"api_model,omitempty"`
	APIParams   map[string]any `json:"api_params,omitempty"`
}

// Compute は要求の指紋を SHA-256 の小文字64桁16進文字列として返します。
// 参照画像の順序には依存しません。同一の論理入力は常に同一のハッシュに
// なります。
func Compute(req Request) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("プロンプトが空です")
	}
	if err := validateParams(req.APIParams); err != nil {
		return "", err
	}

	// 画像識別子は辞書順ソートで順序独立にする
	images := make([]string, len(req.Images))
	copy(images, req.Images)
	sort.Strings(images)

	// 空マップと未指定を同一の正規形（省略）に揃える
	params := req.APIParams
	if len(params) == 0 {
		params = nil
	}

	canonical := canonicalForm{
		Prompt:      req.Prompt,
		Images:      images,
		Model:       req.Model,
		Scale:       req.Scale,
		ImageSize:   req.ImageSize,
		APIEndpoint: req.APIEndpoint,
		APIModel:    req.APIModel,
		APIParams:   params,
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("正規形のシリアライズに失敗しました: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FromRequest は domain.GenerationRequest から指紋を計算します。
func FromRequest(req domain.GenerationRequest) (string, error) {
	return Compute(Request{
		Prompt:      req.Prompt,
		Images:      req.ReferenceImages,
		Model:       req.Model.String(),
		Scale:       req.Scale,
		ImageSize:   req.ImageSize,
		APIEndpoint: req.APIEndpoint,
		APIModel:    req.APIModel,
		APIParams:   req.APIParams,
	})
}

// FromMetadata は保存済みメタデータから指紋を再計算します。
// GeneratedImage はハッシュ対象外です。
func FromMetadata(m *domain.GenerationMetadata) (string, error) {
	return Compute(Request{
		Prompt:      m.Prompt,
		Images:      m.Images,
		Model:       m.Model,
		Scale:       m.Scale,
		ImageSize:   m.ImageSize,
		APIEndpoint: m.APIEndpoint,
		APIModel:    m.APIModel,
		APIParams:   m.APIParams,
	})
}

// validateParams はベンダーパラメータがスカラー値のみで構成されていることを
// 検証します。不完全な表現をハッシュしてしまうより、早く大きく失敗させます。
func validateParams(params map[string]any) error {
	for key, value := range params {
		switch value.(type) {
		case nil, string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, json.Number:
			// スカラーのみ許可
		default:
			return fmt.Errorf("ベンダーパラメータ %q の値がスカラーではありません: %T", key, value)
		}
	}
	return nil
}
