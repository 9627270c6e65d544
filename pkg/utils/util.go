// Package utils はファイル名生成やパス操作の共通ヘルパーを提供します。
package utils

import (
	"fmt"
	"os"
	"time"
)

// タイムスタンプ書式の定数
const (
	StandardDatetimeFormat = "2006-01-02 15:04:05"
	FilenameDatetimeFormat = "2006-01-02-15:04:05"
	CompactDatetimeFormat  = "060102-15:04:05"
)

// GenerateTimestampedFilename は <base>_<タイムスタンプ>.<ext> 形式の
// ファイル名を返します。
func GenerateTimestampedFilename(base, ext string) string {
	timestamp := time.Now().Format(FilenameDatetimeFormat)
	return fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
}

// EnsureDirectoryExists はディレクトリを（必要なら親ごと）作成します。
func EnsureDirectoryExists(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ExtensionForMimeType は画像MIMEタイプに対応するファイル拡張子を返します。
// 未知のタイプは png として扱います。
func ExtensionForMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
