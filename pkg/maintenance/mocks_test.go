package maintenance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// --- Mocks ---

type mockObject struct {
	body         []byte
	metadata     map[string]string
	lastModified time.Time
	contentType  string
}

// mockS3 はメタデータ付きオブジェクトをメモリで保持する S3API 実装です。
type mockS3 struct {
	objects    map[string]*mockObject
	pageSize   int
	failList   error
	failHead   map[string]error
	failDelete map[string]error
	copyCalled int
}

func newMockS3() *mockS3 {
	return &mockS3{
		objects:    make(map[string]*mockObject),
		failHead:   make(map[string]error),
		failDelete: make(map[string]error),
	}
}

func (m *mockS3) put(key string, body []byte, hash string, lastModified time.Time) {
	obj := &mockObject{body: body, lastModified: lastModified, metadata: map[string]string{}}
	if hash != "" {
		obj.metadata[HashMetadataKey] = hash
	}
	m.objects[key] = obj
}

func (m *mockS3) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *mockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.failList != nil {
		return nil, m.failList
	}

	keys := m.sortedKeys(aws.ToString(params.Prefix))

	start := 0
	if params.ContinuationToken != nil {
		fmt.Sscanf(aws.ToString(params.ContinuationToken), "%d", &start)
	}
	end := len(keys)
	if m.pageSize > 0 && start+m.pageSize < end {
		end = start + m.pageSize
	}

	out := &s3.ListObjectsV2Output{}
	for _, key := range keys[start:end] {
		obj := m.objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: aws.Time(obj.lastModified),
			Size:         aws.Int64(int64(len(obj.body))),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (m *mockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(params.Key)
	if err := m.failHead[key]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		Metadata:    obj.metadata,
		ContentType: aws.String(obj.contentType),
	}, nil
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}, nil
}

func (m *mockS3) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	m.copyCalled++
	obj, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if params.MetadataDirective == types.MetadataDirectiveReplace {
		obj.metadata = params.Metadata
	}
	return &s3.CopyObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	if err := m.failDelete[key]; err != nil {
		return nil, err
	}
	delete(m.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

// mockStore は ObjectStore を直接差し替えるためのモックです。
type mockStore struct {
	listing  *Listing
	listErr  error
	deleted  []string
	failKeys map[string]bool
}

func (m *mockStore) ListObjects(ctx context.Context, prefix string) (*Listing, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listing, nil
}

func (m *mockStore) DeleteObjects(ctx context.Context, keys []string) (deleted, failed int) {
	for _, key := range keys {
		if m.failKeys[key] {
			failed++
			continue
		}
		m.deleted = append(m.deleted, key)
		deleted++
	}
	return deleted, failed
}
