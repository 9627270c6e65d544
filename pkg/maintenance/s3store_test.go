package maintenance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3ObjectStore_Validation(t *testing.T) {
	t.Run("clientが必須なのだ", func(t *testing.T) {
		_, err := NewS3ObjectStore(nil, "bucket")
		assert.Error(t, err)
	})

	t.Run("bucketが必須なのだ", func(t *testing.T) {
		_, err := NewS3ObjectStore(newMockS3(), "")
		assert.Error(t, err)
	})
}

func TestS3ObjectStore_ListObjects(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock := newMockS3()
	mock.put("images/a.png", []byte("aaa"), "hash-1", base)
	mock.put("images/b.png", []byte("bbbb"), "hash-2", base.Add(time.Hour))
	mock.put("images/nohash.png", []byte("cc"), "", base)
	mock.put("images/", nil, "", base) // ディレクトリマーカー
	mock.put("other/c.png", []byte("ddd"), "hash-3", base)

	store, err := NewS3ObjectStore(mock, "test-bucket")
	require.NoError(t, err)

	t.Run("接頭辞配下のハッシュ付きオブジェクトだけが返るのだ", func(t *testing.T) {
		listing, err := store.ListObjects(ctx, "images/")
		require.NoError(t, err)

		assert.Equal(t, 3, listing.TotalCount)
		assert.Equal(t, 1, listing.NoHashCount)
		require.Len(t, listing.Objects, 2)

		assert.Equal(t, "images/a.png", listing.Objects[0].Key)
		assert.Equal(t, "hash-1", listing.Objects[0].ContentHash)
		assert.Equal(t, int64(3), listing.Objects[0].SizeBytes)
		assert.True(t, listing.Objects[0].LastModified.Equal(base))
	})

	t.Run("ページネーションをまたいでも全件集まるのだ", func(t *testing.T) {
		mock.pageSize = 2
		defer func() { mock.pageSize = 0 }()

		listing, err := store.ListObjects(ctx, "images/")
		require.NoError(t, err)
		assert.Equal(t, 3, listing.TotalCount)
		assert.Len(t, listing.Objects, 2)
	})

	t.Run("HeadObject失敗はハッシュなし扱いで続行するのだ", func(t *testing.T) {
		mock.failHead["images/b.png"] = errors.New("throttled")
		defer delete(mock.failHead, "images/b.png")

		listing, err := store.ListObjects(ctx, "images/")
		require.NoError(t, err)
		assert.Equal(t, 2, listing.NoHashCount)
		require.Len(t, listing.Objects, 1)
		assert.Equal(t, "images/a.png", listing.Objects[0].Key)
	})
}

func TestS3ObjectStore_ListObjects_Failure(t *testing.T) {
	mock := newMockS3()
	mock.failList = errors.New("access denied")
	store, err := NewS3ObjectStore(mock, "test-bucket")
	require.NoError(t, err)

	_, err = store.ListObjects(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "一覧取得に失敗しました")
}

func TestS3ObjectStore_DeleteObjects(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	mock := newMockS3()
	mock.put("a.png", []byte("a"), "h1", now)
	mock.put("b.png", []byte("b"), "h2", now)
	mock.put("c.png", []byte("c"), "h3", now)
	mock.failDelete["b.png"] = errors.New("access denied")

	store, err := NewS3ObjectStore(mock, "test-bucket")
	require.NoError(t, err)

	deleted, failed := store.DeleteObjects(ctx, []string{"a.png", "b.png", "c.png"})
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, failed)

	_, aExists := mock.objects["a.png"]
	_, bExists := mock.objects["b.png"]
	assert.False(t, aExists)
	assert.True(t, bExists)
}

func TestS3ObjectStore_BackfillHashes(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	body := []byte("image-bytes")
	sum := sha256.Sum256(body)
	wantHash := hex.EncodeToString(sum[:])

	mock := newMockS3()
	mock.put("images/new.png", body, "", now)
	mock.put("images/done.png", []byte("x"), "existing-hash", now)
	mock.put("images/", nil, "", now)

	store, err := NewS3ObjectStore(mock, "test-bucket")
	require.NoError(t, err)

	summary, err := store.BackfillHashes(ctx, "images/")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 1, mock.copyCalled)

	// 付与後のメタデータは本体の SHA-256 と一致する
	assert.Equal(t, wantHash, mock.objects["images/new.png"].metadata[HashMetadataKey])
	// 付与済みオブジェクトは書き換えない
	assert.Equal(t, "existing-hash", mock.objects["images/done.png"].metadata[HashMetadataKey])
}

func TestS3ObjectStore_BackfillHashes_PartialFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	mock := newMockS3()
	mock.put("a.png", []byte("a"), "", now)
	mock.put("b.png", []byte("b"), "", now)
	mock.failHead["a.png"] = errors.New("throttled")

	store, err := NewS3ObjectStore(mock, "test-bucket")
	require.NoError(t, err)

	summary, err := store.BackfillHashes(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Errors)
}
