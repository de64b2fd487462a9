package processor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Resampler 缩放原语
type Resampler interface {
	Resample(img image.Image, width, height int) image.Image
}

// Cropper 裁剪原语
type Cropper interface {
	Crop(img image.Image, rect CropRectangle) image.Image
}

// Releaser is implemented by buffers backed by pooled memory.
type Releaser interface {
	Release()
}

func release(img image.Image) {
	if r, ok := img.(Releaser); ok {
		r.Release()
	}
}

// LanczosResampler 基于 nfnt/resize 的缩放实现
type LanczosResampler struct {
	Interpolation resize.InterpolationFunction
}

// NewLanczosResampler 使用 Lanczos3 核
func NewLanczosResampler() LanczosResampler {
	return LanczosResampler{Interpolation: resize.Lanczos3}
}

func (r LanczosResampler) Resample(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, r.Interpolation)
}

// ImagingCropper 基于 disintegration/imaging 的裁剪实现
type ImagingCropper struct{}

func (ImagingCropper) Crop(img image.Image, rect CropRectangle) image.Image {
	return imaging.Crop(img, rect.Rect(img.Bounds().Min))
}

// hasAlpha reports whether img may carry non-opaque pixels.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	switch img.ColorModel() {
	case color.YCbCrModel, color.GrayModel, color.Gray16Model, color.CMYKModel:
		return false
	}
	return true
}

// flattenAlpha 复制为不透明的 NRGBA，保留颜色通道，丢弃 alpha
func flattenAlpha(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func dimensions(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
