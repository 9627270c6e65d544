package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetadataTimestampFormat はメタデータファイル名に埋め込むタイムスタンプ書式です。
const MetadataTimestampFormat = "20060102_150405"

// GenerationMetadata は1回の生成要求とその成果物を記録する永続化レコードです。
// ContentHash は pkg/fingerprint で計算され、GeneratedImage はハッシュ対象に含まれません。
type GenerationMetadata struct {
	Prompt         string         `json:"prompt"`
	Images         []string       `json:"images"`
	GeneratedImage string         `json:"generated_image"`
	Model          string         `json:"model,omitempty"`
	Scale          *int           `json:"scale,omitempty"`
	ImageSize      string         `json:"image_size,omitempty"`
	APIEndpoint    string         `json:"api_endpoint,omitempty"`
	APIModel       string         `json:"api_model,omitempty"`
	APIParams      map[string]any `json:"api_params,omitempty"`
	Timestamp      string         `json:"timestamp"` // RFC3339
	ContentHash    string         `json:"content_hash"`
	SizeBytes      int64          `json:"size_bytes,omitempty"`
}

// ToJSON はメタデータを JSON 文字列に変換します。
func (m *GenerationMetadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// MetadataFromJSON は JSON バイト列からメタデータを復元します。
func MetadataFromJSON(data []byte) (*GenerationMetadata, error) {
	var m GenerationMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("メタデータのパースに失敗しました: %w", err)
	}
	return &m, nil
}

// MetadataFilename は metadata_<ハッシュ先頭8文字>_<タイムスタンプ>.json 形式の
// ファイル名を返します。タイムスタンプが RFC3339 として解釈できない場合は
// 現在時刻で代替します。
func (m *GenerationMetadata) MetadataFilename() string {
	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	prefix := m.ContentHash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("metadata_%s_%s.json", prefix, ts.UTC().Format(MetadataTimestampFormat))
}
