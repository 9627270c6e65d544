// s3dedup は生成画像バケットの保守コマンドです。重複オブジェクトの検出と
// 削除、および sha256 メタデータのバックフィルを行います。
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"github.com/shouni/genimage-kit/pkg/dedupe"
	"github.com/shouni/genimage-kit/pkg/maintenance"
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
		prefix   = flag.String("prefix", "", "走査対象のキー接頭辞")
		dryRun   = flag.Bool("dry-run", false, "検出と報告のみ行い削除しない")
		yes      = flag.Bool("yes", false, "削除前の確認をスキップする")
		backfill = flag.Bool("backfill", false, "sha256メタデータのバックフィルを実行する")
	)
	flag.Parse()

	bucket := os.Getenv("AWS_S3_BUCKET")
	if bucket == "" {
		return fmt.Errorf("環境変数 AWS_S3_BUCKET を設定してください")
	}

	ctx := context.Background()

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	store, err := maintenance.NewS3ObjectStore(s3.NewFromConfig(awsCfg), bucket)
	if err != nil {
		return err
	}

	if *backfill {
		return runBackfill(ctx, store, *prefix)
	}
	return runDedup(ctx, store, *prefix, *dryRun, *yes)
}

func runBackfill(ctx context.Context, store *maintenance.S3ObjectStore, prefix string) error {
	summary, err := store.BackfillHashes(ctx, prefix)
	if err != nil {
		return err
	}
	fmt.Printf("バックフィル完了: 付与 %d 件 / スキップ %d 件 / 失敗 %d 件\n",
		summary.Updated, summary.Skipped, summary.Errors)
	return nil
}

func runDedup(ctx context.Context, store *maintenance.S3ObjectStore, prefix string, dryRun, yes bool) error {
	dedup, err := maintenance.NewDeduplicator(store)
	if err != nil {
		return err
	}

	// まずドライランで検出結果を提示する
	report, err := dedup.Run(ctx, maintenance.RunOptions{Prefix: prefix, DryRun: true})
	if err != nil {
		return err
	}
	maintenance.WriteReport(os.Stdout, report)

	if dryRun || report.Summary.DeletableObjects == 0 {
		return nil
	}

	if !yes && !confirm(report.Summary) {
		fmt.Println("中止しました。")
		return nil
	}

	report, err = dedup.Run(ctx, maintenance.RunOptions{Prefix: prefix})
	if err != nil {
		return err
	}
	fmt.Printf("削除結果: 成功 %d 件 / 失敗 %d 件\n", report.Deleted, report.Failed)
	return nil
}

func confirm(s dedupe.Summary) bool {
	fmt.Printf("%d 件のオブジェクト (%s) を削除します。よろしいですか? [y/N]: ",
		s.DeletableObjects, dedupe.FormatSize(s.ReclaimableBytes))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
