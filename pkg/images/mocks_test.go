package images

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// --- Mocks ---

type storedObject struct {
	body        []byte
	metadata    map[string]string
	contentType string
}

// mockS3 はバケット1個分のオブジェクトをメモリで保持する S3API 実装です。
type mockS3 struct {
	objects   map[string]*storedObject
	putCalled int
	failPut   error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string]*storedObject)}
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.putCalled++
	if m.failPut != nil {
		return nil, m.failPut
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = &storedObject{
		body:        data,
		metadata:    params.Metadata,
		contentType: aws.ToString(params.ContentType),
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}, nil
}
