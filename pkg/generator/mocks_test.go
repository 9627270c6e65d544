package generator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkm "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"google.golang.org/genai"

	"github.com/shouni/genimage-kit/pkg/domain"
)

// --- Mocks ---

type mockAIClient struct {
	uploadCalled   bool
	deleteCalled   bool
	lastFileName   string
	generateCalled bool
}

func (m *mockAIClient) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	m.uploadCalled = true
	return "https://gemini.api/files/new-file-id", "files/new-file-id", nil
}

func (m *mockAIClient) DeleteFile(ctx context.Context, name string) error {
	m.deleteCalled = true
	m.lastFileName = name
	return nil
}

func (m *mockAIClient) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return nil, nil
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.generateCalled = true
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("fake")}}},
				},
			}},
		},
	}, nil
}

func (m *mockAIClient) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return nil, nil
}

type mockReader struct{}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return nil, nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return nil
}

type mockHTTPClient struct {
	data []byte
	err  error
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return nil, m.err
}

func (m *mockHTTPClient) DoRequest(req *http.Request) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	return m.err
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) IsSafeURL(urlStr string) (bool, error) {
	return true, nil
}

func (m *mockHTTPClient) IsSecureServiceURL(serviceURL string) bool {
	return true
}

type mockCache struct {
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	m.data[key] = value
}

// mockImages は images.Repository のインメモリ実装です。
type mockImages struct {
	saved   map[string][]byte // filename -> data
	saveErr error
}

func newMockImages() *mockImages {
	return &mockImages{saved: make(map[string][]byte)}
}

func (m *mockImages) SaveImage(ctx context.Context, data []byte, filename string) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved[filename] = data
	return "mem://" + filename, nil
}

func (m *mockImages) LoadImage(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.saved[strings.TrimPrefix(key, "mem://")]; ok {
		return data, nil
	}
	return nil, io.ErrUnexpectedEOF
}

type mockUpscaler struct {
	out       []byte
	err       error
	called    int
	lastScale int
}

func (m *mockUpscaler) Upscale(ctx context.Context, data []byte, scale int) ([]byte, error) {
	m.called++
	m.lastScale = scale
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}

type mockSeedream struct {
	lastReq arkm.GenerateImagesRequest
	resp    arkm.ImagesResponse
	err     error
	called  int
}

func (m *mockSeedream) GenerateImages(ctx context.Context, req arkm.GenerateImagesRequest, _ ...arkruntime.RequestOption) (arkm.ImagesResponse, error) {
	m.called++
	m.lastReq = req
	return m.resp, m.err
}

type mockGenerator struct {
	resp   *domain.ImageResponse
	err    error
	called int
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
	m.called++
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

// mockRepo は metadata.Repository のインメモリ実装です。
type mockRepo struct {
	records    map[string]*domain.GenerationMetadata // key -> record
	saveCalled int
	saveErr    error
	// forcedExistsKey を設定すると MetadataExists は常にそのキーを返す。
	// キー命名のハッシュ接頭辞衝突を再現するために使う
	forcedExistsKey string
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[string]*domain.GenerationMetadata)}
}

func (m *mockRepo) SaveMetadata(ctx context.Context, md *domain.GenerationMetadata) (string, error) {
	m.saveCalled++
	if m.saveErr != nil {
		return "", m.saveErr
	}
	key := md.MetadataFilename()
	m.records[key] = md
	return key, nil
}

func (m *mockRepo) LoadMetadata(ctx context.Context, key string) (*domain.GenerationMetadata, error) {
	if md, ok := m.records[key]; ok {
		return md, nil
	}
	return nil, io.ErrUnexpectedEOF
}

func (m *mockRepo) MetadataExists(ctx context.Context, contentHash string) (string, error) {
	if m.forcedExistsKey != "" {
		return m.forcedExistsKey, nil
	}
	for key, md := range m.records {
		if md.ContentHash == contentHash {
			return key, nil
		}
	}
	return "", nil
}

func (m *mockRepo) ListByHashPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range m.records {
		keys = append(keys, key)
	}
	return keys, nil
}
