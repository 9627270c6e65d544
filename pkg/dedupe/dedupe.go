// Package dedupe はコンテンツハッシュ付きオブジェクトの一覧から重複グループを
// 特定し、グループごとに1件の生存者（canonical）を選出します。
// I/O は行わず、呼び出し側が渡したスナップショットに対する純粋な判定のみを
// 提供します。実際の削除は呼び出し側のストレージクライアントが行います。
package dedupe

import (
	"fmt"
	"sort"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// DuplicateGroup は同一ハッシュを共有するオブジェクト群の判定結果です。
// Keep が canonical（最古、同時刻ならキーの辞書順最小）、Delete が削除候補です。
type DuplicateGroup struct {
	Hash   string
	Keep   domain.StoredObject
	Delete []domain.StoredObject
}

// Summary は削除前のドライラン報告用の集計です。
type Summary struct {
	DuplicateSets    int
	DeletableObjects int
	ReclaimableBytes int64
}

// FindDuplicates はオブジェクト一覧をハッシュでグループ化し、サイズ2以上の
// 各グループについて生存者と削除候補を決定します。単独のオブジェクトは
// 結果に含まれません。同一の入力多重集合に対して結果は常に同一で、
// 再現性のため結果はハッシュの辞書順に並びます。
func FindDuplicates(objects []domain.StoredObject) []DuplicateGroup {
	byHash := make(map[string][]domain.StoredObject)
	for _, obj := range objects {
		byHash[obj.ContentHash] = append(byHash[obj.ContentHash], obj)
	}

	groups := make([]DuplicateGroup, 0)
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}

		// 最古を先頭に。同時刻はキーの辞書順で決定的にする
		sort.Slice(members, func(i, j int) bool {
			if !members[i].LastModified.Equal(members[j].LastModified) {
				return members[i].LastModified.Before(members[j].LastModified)
			}
			return members[i].Key < members[j].Key
		})

		groups = append(groups, DuplicateGroup{
			Hash:   hash,
			Keep:   members[0],
			Delete: members[1:],
		})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Hash < groups[j].Hash })
	return groups
}

// Summarize は重複グループ群を削除候補数と回収可能バイト数に集約します。
func Summarize(groups []DuplicateGroup) Summary {
	s := Summary{DuplicateSets: len(groups)}
	for _, g := range groups {
		s.DeletableObjects += len(g.Delete)
		for _, obj := range g.Delete {
			s.ReclaimableBytes += obj.SizeBytes
		}
	}
	return s
}

// FormatSize はバイト数を人間が読みやすい単位で整形します。
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}
