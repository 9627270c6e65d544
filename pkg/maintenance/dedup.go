package maintenance

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/genimage-kit/pkg/dedupe"
)

// ObjectStore は重複排除処理が必要とするストレージ操作です。
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) (*Listing, error)
	DeleteObjects(ctx context.Context, keys []string) (deleted, failed int)
}

// Deduplicator はストレージ上の重複オブジェクトを検出・削除します。
type Deduplicator struct {
	store ObjectStore
}

// NewDeduplicator は依存関係を注入して Deduplicator を初期化します。
func NewDeduplicator(store ObjectStore) (*Deduplicator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Deduplicator{store: store}, nil
}

// RunOptions は重複排除の実行オプションです。
type RunOptions struct {
	// Prefix は走査対象のキー接頭辞です。空文字でバケット全体を走査します。
	Prefix string
	// DryRun が true の場合、検出と報告のみ行い削除しません。
	DryRun bool
}

// Report は1回の重複排除実行の結果です。
type Report struct {
	Groups      []dedupe.DuplicateGroup
	Summary     dedupe.Summary
	TotalCount  int
	NoHashCount int
	Deleted     int
	Failed      int
	DryRun      bool
}

// Run はオブジェクトを列挙して重複グループを検出し、DryRun でなければ
// 各グループの最古オブジェクト以外を削除します。
func (d *Deduplicator) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	listing, err := d.store.ListObjects(ctx, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("オブジェクトの列挙に失敗しました: %w", err)
	}

	groups := dedupe.FindDuplicates(listing.Objects)
	report := &Report{
		Groups:      groups,
		Summary:     dedupe.Summarize(groups),
		TotalCount:  listing.TotalCount,
		NoHashCount: listing.NoHashCount,
		DryRun:      opts.DryRun,
	}

	slog.InfoContext(ctx, "重複スキャンが完了しました",
		"total", report.TotalCount,
		"no_hash", report.NoHashCount,
		"duplicate_groups", report.Summary.DuplicateSets,
		"redundant_objects", report.Summary.DeletableObjects,
	)

	if opts.DryRun || report.Summary.DeletableObjects == 0 {
		return report, nil
	}

	var keys []string
	for _, g := range groups {
		for _, obj := range g.Delete {
			keys = append(keys, obj.Key)
		}
	}
	report.Deleted, report.Failed = d.store.DeleteObjects(ctx, keys)

	return report, nil
}

// WriteReport は実行結果を人間向けのテキストで書き出します。
func WriteReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "走査オブジェクト数: %d (ハッシュなし: %d)\n", r.TotalCount, r.NoHashCount)
	fmt.Fprintf(w, "重複グループ数: %d\n", r.Summary.DuplicateSets)
	fmt.Fprintf(w, "削除可能オブジェクト数: %d (%s)\n",
		r.Summary.DeletableObjects, dedupe.FormatSize(r.Summary.ReclaimableBytes))

	for _, g := range r.Groups {
		fmt.Fprintf(w, "\nハッシュ %s:\n", g.Hash)
		fmt.Fprintf(w, "  保持: %s (%s)\n", g.Keep.Key, g.Keep.LastModified.Format("2006-01-02 15:04:05"))
		for _, obj := range g.Delete {
			fmt.Fprintf(w, "  削除: %s (%s)\n", obj.Key, obj.LastModified.Format("2006-01-02 15:04:05"))
		}
	}

	if r.DryRun {
		fmt.Fprintln(w, "\nドライランのため削除は行いませんでした。")
		return
	}
	if r.Summary.DeletableObjects > 0 {
		fmt.Fprintf(w, "\n削除結果: 成功 %d 件 / 失敗 %d 件\n", r.Deleted, r.Failed)
	}
}
