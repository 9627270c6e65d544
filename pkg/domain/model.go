package domain

import "fmt"

// Model は画像生成に使用するベンダーを表す閉じた列挙型です。
// 文字列比較を呼び出しスタックに散在させず、境界で一度だけ解決します。
type Model string

const (
	ModelGemini   Model = "gemini"
	ModelSeedream Model = "seedream"
)

// ParseModel はベンダー名文字列を Model に解決します。
// 未知のベンダー名はエラーを返します。
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelGemini:
		return ModelGemini, nil
	case ModelSeedream:
		return ModelSeedream, nil
	}
	return "", fmt.Errorf("未対応のモデルです: %q", s)
}

// String は Model の文字列表現を返します。
func (m Model) String() string { return string(m) }

// GenerationRequest は単一の画像生成要求です。
// ReferenceImages はローカルパス・URL・gs:// URI のいずれかを受け付けます。
type GenerationRequest struct {
	Prompt          string
	ReferenceImages []string
	Model           Model
	Scale           *int   // アップスケール倍率。nil で無指定
	ImageSize       string // 例: "1024x1024"。空で無指定
	Seed            *int64
	APIEndpoint     string
	APIModel        string
	APIParams       map[string]any // temperature, cfg_scale 等のベンダー固有パラメータ
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
	UsedSeed int64 // 戻り値は情報欠落を防ぐため int64
}
