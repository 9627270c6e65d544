package domain

import "time"

// StoredObject はストレージ上のオブジェクト1件のスナップショットです。
// ContentHash はオブジェクト本体の SHA-256（64桁小文字16進）で、
// 書き込み時にオブジェクトメタデータとして付与されます。
type StoredObject struct {
	Key          string
	ContentHash  string
	LastModified time.Time
	SizeBytes    int64
}
