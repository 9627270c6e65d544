package generator

const (
	UseImageCompression     = true
	ImageCompressionQuality = 75
	cacheKeyFileAPIURI      = "fileapi_uri:"
	cacheKeyFileAPIName     = "fileapi_name:"

	// inlineDataLimitBytes を超える参照画像はインラインではなく
	// File API 経由で渡します。
	inlineDataLimitBytes = 20 * 1024 * 1024
)

// ImageOutput は Core の内部解析結果
type ImageOutput struct {
	Data     []byte
	MimeType string
	UsedSeed int64
}
