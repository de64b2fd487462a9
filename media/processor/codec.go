package processor

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"sort"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/leeforge/imagekit/errors"
)

// Decoder 解码原始字节流为像素缓冲区
type Decoder interface {
	Decode(r io.Reader) (image.Image, error)
}

// Encoder 将像素缓冲区编码为某种输出格式
type Encoder interface {
	Format() string
	MediaType() string
	// Encode writes img to w. quality is in [0, 1]; encoders without a
	// quality knob ignore it.
	Encode(w io.Writer, img image.Image, quality float64) error
}

// StdDecoder 使用 image.Decode，支持 jpeg/png/gif/bmp/tiff/webp
type StdDecoder struct{}

func (StdDecoder) Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

type jpegEncoder struct{}

func (jpegEncoder) Format() string    { return "jpeg" }
func (jpegEncoder) MediaType() string { return "image/jpeg" }

func (jpegEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality(quality)})
}

// JPEGQuality maps a [0, 1] quality onto the 1..100 jpeg scale.
func JPEGQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	return min(max(q, 1), 100)
}

type pngEncoder struct{}

func (pngEncoder) Format() string    { return "png" }
func (pngEncoder) MediaType() string { return "image/png" }

func (pngEncoder) Encode(w io.Writer, img image.Image, _ float64) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

type gifEncoder struct{}

func (gifEncoder) Format() string    { return "gif" }
func (gifEncoder) MediaType() string { return "image/gif" }

func (gifEncoder) Encode(w io.Writer, img image.Image, _ float64) error {
	return gif.Encode(w, img, &gif.Options{NumColors: 256})
}

type bmpEncoder struct{}

func (bmpEncoder) Format() string    { return "bmp" }
func (bmpEncoder) MediaType() string { return "image/bmp" }

func (bmpEncoder) Encode(w io.Writer, img image.Image, _ float64) error {
	return bmp.Encode(w, img)
}

type tiffEncoder struct{}

func (tiffEncoder) Format() string    { return "tiff" }
func (tiffEncoder) MediaType() string { return "image/tiff" }

func (tiffEncoder) Encode(w io.Writer, img image.Image, _ float64) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// CodecRegistry 输出格式到编码器的映射
type CodecRegistry struct {
	mu       sync.RWMutex
	encoders map[string][]Encoder
}

// NewCodecRegistry 创建空注册表
func NewCodecRegistry() *CodecRegistry {
	return &CodecRegistry{encoders: make(map[string][]Encoder)}
}

// DefaultCodecs 注册 jpg/jpeg、png、gif、bmp、tif/tiff
func DefaultCodecs() *CodecRegistry {
	r := NewCodecRegistry()
	r.Register(jpegEncoder{}, "jpg", "jpeg")
	r.Register(pngEncoder{}, "png")
	r.Register(gifEncoder{}, "gif")
	r.Register(bmpEncoder{}, "bmp")
	r.Register(tiffEncoder{}, "tif", "tiff")
	return r
}

// Register 为一个或多个格式名追加编码器，先注册者优先
func (r *CodecRegistry) Register(enc Encoder, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		key := normalizeName(name)
		r.encoders[key] = append(r.encoders[key], enc)
	}
}

// ListEncodersForFormat 返回格式名对应的编码器，按注册顺序
func (r *CodecRegistry) ListEncodersForFormat(name string) []Encoder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.encoders[normalizeName(name)]
	out := make([]Encoder, len(list))
	copy(out, list)
	return out
}

// Lookup 返回首选编码器，不存在时返回 UnknownFormat
func (r *CodecRegistry) Lookup(name string) (Encoder, error) {
	encoders := r.ListEncodersForFormat(name)
	if len(encoders) == 0 {
		return nil, errors.NewUnknownFormat(name)
	}
	return encoders[0], nil
}

// Formats 已注册的格式名，已排序
func (r *CodecRegistry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
