package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/genimage-kit/pkg/domain"
	"github.com/shouni/genimage-kit/pkg/fingerprint"
	"github.com/shouni/genimage-kit/pkg/images"
	"github.com/shouni/genimage-kit/pkg/imgutil"
	"github.com/shouni/genimage-kit/pkg/metadata"
	"github.com/shouni/genimage-kit/pkg/utils"
)

// Service は指紋による冪等性チェック付きの画像生成サービスです。
// 同一の論理入力による過去の生成が見つかった場合、ベンダーAPIを呼ばずに
// 既存の成果物を返します。
type Service struct {
	generator       ImageGenerator
	metadata        metadata.Repository
	images          images.Repository
	upscaler        Upscaler
	workDir         string
	maxUploadSizeMB float64
}

// ServiceConfig は Service の構築に必要な依存関係です。
type ServiceConfig struct {
	Generator ImageGenerator
	Metadata  metadata.Repository
	Images    images.Repository
	// Upscaler は Scale 指定要求の高解像度化に使用します。nil の場合、
	// Scale 付きの要求はエラーになります。
	Upscaler Upscaler
	// WorkDir はサイズ最適化のための作業ディレクトリです。
	WorkDir string
	// MaxUploadSizeMB に 0 以下を渡すとデフォルト予算を使用します。
	MaxUploadSizeMB float64
}

// GenerateOutcome は Service.Generate の結果です。
// Reused は既存成果物の再利用、BestEffort はサイズ予算未達の成果物を示します。
type GenerateOutcome struct {
	ImagePath  string
	Metadata   *domain.GenerationMetadata
	Reused     bool
	BestEffort bool
}

// NewService は依存関係を注入して Service を初期化します。
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Metadata == nil {
		return nil, fmt.Errorf("metadata repository is required")
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("image repository is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("workDir is required")
	}
	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = imgutil.DefaultMaxUploadSizeMB
	}

	return &Service{
		generator:       cfg.Generator,
		metadata:        cfg.Metadata,
		images:          cfg.Images,
		upscaler:        cfg.Upscaler,
		workDir:         cfg.WorkDir,
		maxUploadSizeMB: cfg.MaxUploadSizeMB,
	}, nil
}

// Generate は要求の指紋を計算し、既存レコードの確認、生成、サイズ最適化、
// 高解像度化、成果物とメタデータの保存までを一括で行います。
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (*GenerateOutcome, error) {
	hash, err := fingerprint.FromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("指紋の計算に失敗しました: %w", err)
	}

	// Scale 付き要求はベンダーAPIを呼ぶ前に構成を確認する
	if req.Scale != nil && s.upscaler == nil {
		return nil, fmt.Errorf("scale=%d が指定されましたがアップスケーラーが構成されていません", *req.Scale)
	}

	if outcome := s.findReusable(ctx, hash); outcome != nil {
		return outcome, nil
	}

	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	storedPath, sizeBytes, bestEffort, err := s.persistArtifact(ctx, req, resp)
	if err != nil {
		return nil, err
	}

	m := &domain.GenerationMetadata{
		Prompt:         req.Prompt,
		Images:         req.ReferenceImages,
		GeneratedImage: storedPath,
		Model:          req.Model.String(),
		Scale:          req.Scale,
		ImageSize:      req.ImageSize,
		APIEndpoint:    req.APIEndpoint,
		APIModel:       req.APIModel,
		APIParams:      req.APIParams,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ContentHash:    hash,
		SizeBytes:      sizeBytes,
	}

	// メタデータ保存の失敗は生成自体を失敗にはしない
	if _, err := s.metadata.SaveMetadata(ctx, m); err != nil {
		slog.WarnContext(ctx, "メタデータの保存に失敗しました", "error", err)
	}

	return &GenerateOutcome{
		ImagePath:  storedPath,
		Metadata:   m,
		BestEffort: bestEffort,
	}, nil
}

// findReusable は同一指紋の生成済みレコードを探します。キー命名はハッシュの
// 先頭8文字しか含まないため、レコード本体のフルハッシュ一致まで確認します。
func (s *Service) findReusable(ctx context.Context, hash string) *GenerateOutcome {
	existingKey, err := s.metadata.MetadataExists(ctx, hash)
	if err != nil || existingKey == "" {
		return nil
	}

	existing, err := s.metadata.LoadMetadata(ctx, existingKey)
	if err != nil {
		slog.WarnContext(ctx, "既存メタデータの読み込みに失敗したため再生成します", "error", err)
		return nil
	}
	if existing.ContentHash != hash {
		slog.WarnContext(ctx, "ハッシュ接頭辞が衝突したため再生成します",
			"key", existingKey, "want", hash[:8])
		return nil
	}
	if existing.GeneratedImage == "" {
		return nil
	}

	slog.InfoContext(ctx, "同一指紋の生成結果を再利用します",
		"hash", hash[:8], "image", existing.GeneratedImage)
	return &GenerateOutcome{
		ImagePath: existing.GeneratedImage,
		Metadata:  existing,
		Reused:    true,
	}
}

// persistArtifact は生成画像をサイズ予算内に最適化し、必要なら高解像度化して
// 画像リポジトリに保存します。
func (s *Service) persistArtifact(ctx context.Context, req domain.GenerationRequest, resp *domain.ImageResponse) (string, int64, bool, error) {
	if err := utils.EnsureDirectoryExists(s.workDir); err != nil {
		return "", 0, false, fmt.Errorf("作業ディレクトリの作成に失敗しました: %w", err)
	}

	filename := utils.GenerateTimestampedFilename("generated", utils.ExtensionForMimeType(resp.MimeType))
	workPath := filepath.Join(s.workDir, filename)
	if err := os.WriteFile(workPath, resp.Data, 0o644); err != nil {
		return "", 0, false, fmt.Errorf("生成画像の書き込みに失敗しました (%s): %w", workPath, err)
	}

	// アップロード・保存前にサイズ予算に収める
	optimized, err := imgutil.OptimizeImageSize(workPath, s.maxUploadSizeMB)
	if err != nil {
		return "", 0, false, err
	}
	if optimized.BestEffort {
		slog.WarnContext(ctx, "最低品質でもサイズ予算を達成できませんでした",
			"path", optimized.Path, "size_bytes", optimized.SizeBytes)
	}

	finalData, err := os.ReadFile(optimized.Path)
	if err != nil {
		return "", 0, false, fmt.Errorf("最適化済み画像の読み込みに失敗しました (%s): %w", optimized.Path, err)
	}

	storedPath, err := s.images.SaveImage(ctx, finalData, filepath.Base(optimized.Path))
	if err != nil {
		return "", 0, false, err
	}
	sizeBytes := int64(len(finalData))

	if req.Scale != nil {
		upscaled, err := s.upscaler.Upscale(ctx, finalData, *req.Scale)
		if err != nil {
			return "", 0, false, fmt.Errorf("アップスケールに失敗しました: %w", err)
		}

		upName := upscaledFilename(filepath.Base(optimized.Path), http.DetectContentType(upscaled))
		storedPath, err = s.images.SaveImage(ctx, upscaled, upName)
		if err != nil {
			return "", 0, false, err
		}
		sizeBytes = int64(len(upscaled))
	}

	return storedPath, sizeBytes, optimized.BestEffort, nil
}

// upscaledFilename は元のファイル名に upscaled_ 接頭辞を付け、拡張子を
// 実際の出力形式に合わせます。
func upscaledFilename(base, mimeType string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return "upscaled_" + stem + "." + utils.ExtensionForMimeType(mimeType)
}
