package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalRepository はローカルファイルシステム上に画像を保存するリポジトリです。
type LocalRepository struct {
	baseDir string
}

// NewLocalRepository は保存先ディレクトリを作成してリポジトリを初期化します。
func NewLocalRepository(baseDir string) (*LocalRepository, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("画像ディレクトリの作成に失敗しました: %w", err)
	}
	return &LocalRepository{baseDir: baseDir}, nil
}

// SaveImage は画像をファイルとして書き出し、そのパスを返します。
func (r *LocalRepository) SaveImage(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("画像データが空です")
	}

	path := filepath.Join(r.baseDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("画像の書き込みに失敗しました (%s): %w", path, err)
	}

	slog.InfoContext(ctx, "生成画像を保存しました", "path", path, "size_bytes", len(data))
	return path, nil
}

// LoadImage は保存済みファイルから画像データを読み込みます。
func (r *LocalRepository) LoadImage(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("画像の読み込みに失敗しました (%s): %w", key, err)
	}
	return data, nil
}
