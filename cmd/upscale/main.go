// upscale は画像ファイルを Vertex AI Imagen で高解像度化するコマンドです。
// 結果は入力ファイルの隣に upscaled_ 接頭辞付きで保存されます。
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/shouni/genimage-kit/pkg/upscale"
)

func main() {
	if err := run(); err != nil {
		slog.Error("実行に失敗しました", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env はあれば読む。なくてもエラーにしない
	_ = godotenv.Load()

	var (
		scale = flag.Int("scale", 4, "アップスケール倍率 (2 または 4)")
		model = flag.String("model", "", "使用するImagenモデル名 (省略時はデフォルト)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("使い方: upscale [-scale 2|4] <画像ファイル>")
	}
	imagePath := flag.Arg(0)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("画像の読み込みに失敗しました (%s): %w", imagePath, err)
	}

	ctx := context.Background()

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return fmt.Errorf("genaiクライアントの作成に失敗しました: %w", err)
	}

	upscaler, err := upscale.NewVertexUpscaler(client, *model)
	if err != nil {
		return err
	}

	upscaled, err := upscaler.Upscale(ctx, data, *scale)
	if err != nil {
		return err
	}

	outPath := filepath.Join(filepath.Dir(imagePath), "upscaled_"+filepath.Base(imagePath))
	if err := os.WriteFile(outPath, upscaled, 0o644); err != nil {
		return fmt.Errorf("高解像度画像の書き込みに失敗しました (%s): %w", outPath, err)
	}

	fmt.Printf("高解像度画像を保存しました: %s\n", outPath)
	return nil
}
