package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkm "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// SeedreamAPI は Ark ランタイムの画像生成呼び出しを抽象化するインターフェースです。
type SeedreamAPI interface {
	GenerateImages(ctx context.Context, req arkm.GenerateImagesRequest, setters ...arkruntime.RequestOption) (arkm.ImagesResponse, error)
}

// SeedreamGenerator は BytePlus/Volcano Engine の Seedream モデルによる
// 画像生成を担当するジェネレーターです。
type SeedreamGenerator struct {
	client     SeedreamAPI
	httpClient HTTPClient
	model      string
}

// NewSeedreamClient は API キーから Ark ランタイムクライアントを生成します。
func NewSeedreamClient(apiKey string) (SeedreamAPI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("seedream API key is required")
	}
	return arkruntime.NewClientWithApiKey(apiKey), nil
}

// NewSeedreamGenerator は依存関係を注入して SeedreamGenerator を初期化するのだ。
// httpClient は URL 形式で返却された生成結果の取得に使用します（nil 可）。
func NewSeedreamGenerator(client SeedreamAPI, httpClient HTTPClient, model string) (*SeedreamGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("client (SeedreamAPI) is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &SeedreamGenerator{client: client, httpClient: httpClient, model: model}, nil
}

// Generate はプロンプト（と任意の参照画像1枚）から画像を生成するのだ。
func (g *SeedreamGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
	slog.InfoContext(ctx, "Seedream生成リクエスト準備中", "model", g.model, "ref_count", len(req.ReferenceImages))

	arkReq := arkm.GenerateImagesRequest{
		Model:          g.model,
		Prompt:         strings.TrimSpace(req.Prompt),
		ResponseFormat: volcengine.String(arkm.GenerateImagesResponseFormatBase64),
	}

	// Seedream の image-to-image は参照画像を1枚だけ受け付ける
	if len(req.ReferenceImages) > 0 && req.ReferenceImages[0] != "" {
		arkReq.Image = req.ReferenceImages[0]
	}
	if req.ImageSize != "" {
		arkReq.Size = volcengine.String(req.ImageSize)
	}
	if req.Seed != nil {
		arkReq.Seed = volcengine.Int64(*req.Seed)
	}
	applyVendorParams(&arkReq, req.APIParams)

	resp, err := g.client.GenerateImages(ctx, arkReq)
	if err != nil {
		return nil, fmt.Errorf("Seedream画像生成エラー: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("Seedream APIエラー (%s): %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("Seedreamから画像データが返されませんでした")
	}

	// base64 応答を優先し、URL 応答にはフォールバックする
	item := resp.Data[0]
	var data []byte
	switch {
	case item.B64Json != nil && *item.B64Json != "":
		data, err = base64.StdEncoding.DecodeString(*item.B64Json)
		if err != nil {
			return nil, fmt.Errorf("Seedream応答のbase64デコードに失敗しました: %w", err)
		}
	case item.Url != nil && *item.Url != "":
		if g.httpClient == nil {
			return nil, fmt.Errorf("URL形式の応答を取得するHTTPクライアントがありません")
		}
		data, err = g.httpClient.FetchBytes(ctx, *item.Url)
		if err != nil {
			return nil, fmt.Errorf("Seedream応答URLの取得に失敗しました: %w", err)
		}
	default:
		return nil, fmt.Errorf("Seedream応答に画像が含まれていません")
	}

	return &domain.ImageResponse{
		Data:     data,
		MimeType: http.DetectContentType(data),
		UsedSeed: dereferenceSeed(req.Seed),
	}, nil
}

// applyVendorParams は APIParams の既知キーを Ark リクエストに反映します。
// 未知のキーは無視します（指紋には含まれるが送信はされない）。
func applyVendorParams(req *arkm.GenerateImagesRequest, params map[string]any) {
	for key, value := range params {
		switch key {
		case "cfg_scale", "guidance_scale":
			if f, ok := toFloat64(value); ok {
				req.GuidanceScale = volcengine.Float64(f)
			}
		case "watermark":
			if b, ok := value.(bool); ok {
				req.Watermark = volcengine.Bool(b)
			}
		case "optimize_prompt":
			if b, ok := value.(bool); ok {
				req.OptimizePrompt = volcengine.Bool(b)
			}
		}
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
