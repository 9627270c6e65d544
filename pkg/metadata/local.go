package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// LocalRepository はローカルファイルシステム上に JSON ファイルとして
// メタデータを保存するリポジトリです。
type LocalRepository struct {
	baseDir string
}

// NewLocalRepository は保存先ディレクトリを作成してリポジトリを初期化します。
func NewLocalRepository(baseDir string) (*LocalRepository, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("メタデータディレクトリの作成に失敗しました: %w", err)
	}
	return &LocalRepository{baseDir: baseDir}, nil
}

// SaveMetadata はレコードを JSON ファイルとして書き出し、そのパスを返します。
func (r *LocalRepository) SaveMetadata(ctx context.Context, m *domain.GenerationMetadata) (string, error) {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := ensureContentHash(m); err != nil {
		return "", err
	}

	data, err := m.ToJSON()
	if err != nil {
		return "", fmt.Errorf("メタデータのシリアライズに失敗しました: %w", err)
	}

	path := filepath.Join(r.baseDir, m.MetadataFilename())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("メタデータの書き込みに失敗しました (%s): %w", path, err)
	}

	slog.InfoContext(ctx, "生成メタデータを保存しました", "path", path, "hash", hashPrefix8(m.ContentHash))
	return path, nil
}

// LoadMetadata は保存済みの JSON ファイルからレコードを復元します。
func (r *LocalRepository) LoadMetadata(ctx context.Context, key string) (*domain.GenerationMetadata, error) {
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("メタデータの読み込みに失敗しました (%s): %w", key, err)
	}
	return domain.MetadataFromJSON(data)
}

// MetadataExists は同一ハッシュのレコードを探し、最初に見つかったパスを返します。
func (r *LocalRepository) MetadataExists(ctx context.Context, contentHash string) (string, error) {
	if contentHash == "" {
		return "", nil
	}
	matches, err := r.ListByHashPrefix(ctx, hashPrefix8(contentHash))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// ListByHashPrefix はファイル名のハッシュ部分が接頭辞に一致するパス一覧を返します。
func (r *LocalRepository) ListByHashPrefix(ctx context.Context, hashPrefix string) ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("メタデータディレクトリの走査に失敗しました: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "metadata_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		// ファイル名形式: metadata_<ハッシュ8文字>_<タイムスタンプ>.json
		hashPart := strings.TrimPrefix(name, "metadata_")
		if strings.HasPrefix(hashPart, hashPrefix) {
			matches = append(matches, filepath.Join(r.baseDir, name))
		}
	}
	return matches, nil
}
