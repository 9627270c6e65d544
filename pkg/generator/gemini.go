package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/genimage-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GeminiGenerator は Gemini API による画像生成を担当するジェネレーターです。
// 参照画像の取得・圧縮・キャッシュは GeminiImageCore に委譲します。
type GeminiGenerator struct {
	imgCore  *GeminiImageCore
	aiClient gemini.GenerativeModel
	model    string
}

// NewGeminiGenerator は GeminiGenerator を初期化するのだ。
func NewGeminiGenerator(
	core *GeminiImageCore,
	aiClient gemini.GenerativeModel,
	model string,
) (*GeminiGenerator, error) {
	if core == nil {
		return nil, fmt.Errorf("core (GeminiImageCore) is required")
	}
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (gemini.GenerativeModel) is required")
	}

	return &GeminiGenerator{
		imgCore:  core,
		aiClient: aiClient,
		model:    model,
	}, nil
}

// Generate はプロンプトと複数の参照画像から1枚の画像を生成するのだ。
func (g *GeminiGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
	slog.InfoContext(ctx, "Gemini生成リクエスト準備中", "model", g.model, "ref_count", len(req.ReferenceImages))

	parts := []*genai.Part{{Text: req.Prompt}}
	for i, ref := range req.ReferenceImages {
		if ref == "" {
			continue
		}
		imgPart := g.imgCore.prepareImagePart(ctx, ref)
		if imgPart == nil {
			// 失敗しても生成自体は続行し、警告ログを残すのだ
			slog.WarnContext(ctx, "参照画像の読み込みに失敗しました", "index", i, "ref", ref)
			continue
		}
		parts = append(parts, imgPart)
	}

	opts := gemini.GenerateOptions{
		AspectRatio: req.ImageSize,
		Seed:        req.Seed,
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.model, parts, opts)
	if err != nil {
		return nil, fmt.Errorf("Gemini画像生成エラー: %w", err)
	}

	out, err := g.imgCore.parseToResponse(resp, dereferenceSeed(req.Seed))
	if err != nil {
		return nil, err
	}

	return &domain.ImageResponse{
		Data:     out.Data,
		MimeType: out.MimeType,
		UsedSeed: out.UsedSeed,
	}, nil
}
