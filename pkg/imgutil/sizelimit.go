package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultMaxUploadSizeMB はアップロード前のデフォルトのサイズ上限です。
	// プロバイダ固有の上限がある場合は呼び出し側で上書きします。
	DefaultMaxUploadSizeMB = 7.0

	minJPEGQuality = 1
	maxJPEGQuality = 95
)

// FileOperationError はファイル読み書きの失敗を、対象パスと操作種別
// ("read" / "write") 付きで表します。
type FileOperationError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileOperationError) Error() string {
	return fmt.Sprintf("ファイル操作 %s に失敗しました (%s): %v", e.Op, e.Path, e.Err)
}

func (e *FileOperationError) Unwrap() error { return e.Err }

// OptimizeResult は OptimizeImageSize の結果です。
// Optimized が false の場合、Path は入力パスそのものです。
// BestEffort が true の場合、最低品質でも予算を超過しており、
// Path は達成できた最小の成果物を指します。
type OptimizeResult struct {
	Path       string
	SizeBytes  int64
	Optimized  bool
	BestEffort bool
}

// OptimizeImageSize は画像ファイルがバイトサイズ予算に収まることを保証します。
// 予算内のファイルには一切触れず、そのままのパスを返します。
// 超過している場合はピクセル寸法を保ったまま JPEG 品質を探索して再エンコードし、
// 元ファイルの隣に拡張子 .jpg の新しいファイルを書き出します。元ファイルは
// 削除も変更もしません。
func OptimizeImageSize(path string, maxSizeMB float64) (*OptimizeResult, error) {
	maxBytes := int64(maxSizeMB * 1024 * 1024)

	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileOperationError{Path: path, Op: "read", Err: err}
	}

	// 予算内なら再エンコードせず即座に返す
	if info.Size() <= maxBytes {
		return &OptimizeResult{Path: path, SizeBytes: info.Size()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileOperationError{Path: path, Op: "read", Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &FileOperationError{Path: path, Op: "read", Err: err}
	}

	encoded, withinBudget, err := findOptimalJPEGQuality(flattenToRGB(img), maxBytes)
	if err != nil {
		return nil, &FileOperationError{Path: path, Op: "write", Err: err}
	}

	outPath := derivedJPEGPath(path)
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		// 書きかけのファイルを有効な成果物と誤認させない
		_ = os.Remove(outPath)
		return nil, &FileOperationError{Path: outPath, Op: "write", Err: err}
	}

	return &OptimizeResult{
		Path:       outPath,
		SizeBytes:  int64(len(encoded)),
		Optimized:  true,
		BestEffort: !withinBudget,
	}, nil
}

// findOptimalJPEGQuality は予算以下に収まる最大の JPEG 品質を二分探索します。
// サイズは品質に対して単調非減少のため、エンコード試行は O(log(範囲)) 回です。
// 最低品質でも超過する場合は最小の成果物と false を返します。
func findOptimalJPEGQuality(img image.Image, maxBytes int64) ([]byte, bool, error) {
	var best []byte
	var smallest []byte

	lo, hi := minJPEGQuality, maxJPEGQuality
	for lo <= hi {
		mid := (lo + hi) / 2

		encoded, err := encodeJPEG(img, mid)
		if err != nil {
			return nil, false, err
		}

		if smallest == nil || len(encoded) < len(smallest) {
			smallest = encoded
		}

		if int64(len(encoded)) <= maxBytes {
			best = encoded
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == nil {
		return smallest, false, nil
	}
	return best, true, nil
}

// flattenToRGB はアルファ付きやグレースケールの画像を、ピクセル寸法を
// 保ったまま3チャンネルのRGBに変換します。すでに不透明RGBの場合は
// そのまま返します。
func flattenToRGB(img image.Image) image.Image {
	if !needsFlatten(img) {
		return img
	}

	bounds := img.Bounds()
	rgb := image.NewRGBA(bounds)
	// 透過部分は白背景に合成する
	draw.Draw(rgb, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(rgb, bounds, img, bounds.Min, draw.Over)
	return rgb
}

func needsFlatten(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
		return !opaque(img)
	case *image.YCbCr:
		return false
	}
	return true
}

func opaque(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	return false
}

// derivedJPEGPath は元の拡張子を .jpg に置き換えた出力先パスを返します。
// 入力がすでに .jpg の場合は元ファイルを潰さないよう別名にします。
func derivedJPEGPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	out := stem + ".jpg"
	if out == path {
		out = stem + "_optimized.jpg"
	}
	return out
}
