package processor

import (
	"fmt"
	"image"
)

// StrategyKind 缩放策略类型
type StrategyKind uint8

const (
	StrategyNoOp StrategyKind = iota
	StrategyFitWidth
	StrategyFitHeight
	StrategyExplicitBox
)

// ResizeStrategy 几何决策结果
//
// FitWidth 只使用 Width，FitHeight 只使用 Height，另一边按源图比例推算。
type ResizeStrategy struct {
	Kind   StrategyKind
	Width  int
	Height int
}

func NoOp() ResizeStrategy { return ResizeStrategy{Kind: StrategyNoOp} }

func FitWidth(width int) ResizeStrategy {
	return ResizeStrategy{Kind: StrategyFitWidth, Width: width}
}

func FitHeight(height int) ResizeStrategy {
	return ResizeStrategy{Kind: StrategyFitHeight, Height: height}
}

func ExplicitBox(width, height int) ResizeStrategy {
	return ResizeStrategy{Kind: StrategyExplicitBox, Width: width, Height: height}
}

// TargetSize 计算策略在给定源尺寸下的实际输出尺寸
func (r ResizeStrategy) TargetSize(srcW, srcH int) (int, int) {
	switch r.Kind {
	case StrategyFitWidth:
		return r.Width, scaleRound(r.Width, srcH, srcW)
	case StrategyFitHeight:
		return scaleRound(r.Height, srcW, srcH), r.Height
	case StrategyExplicitBox:
		return r.Width, r.Height
	default:
		return srcW, srcH
	}
}

func (r ResizeStrategy) String() string {
	switch r.Kind {
	case StrategyFitWidth:
		return fmt.Sprintf("fit-width(%d)", r.Width)
	case StrategyFitHeight:
		return fmt.Sprintf("fit-height(%d)", r.Height)
	case StrategyExplicitBox:
		return fmt.Sprintf("box(%dx%d)", r.Width, r.Height)
	default:
		return "noop"
	}
}

// scaleRound returns round(a*b/c) with halves rounded up, never less than 1.
func scaleRound(a, b, c int) int {
	if c <= 0 {
		return max(a, 1)
	}
	n := (2*int64(a)*int64(b) + int64(c)) / (2 * int64(c))
	if n < 1 {
		return 1
	}
	return int(n)
}

// Resolve 根据源尺寸和设置选择缩放策略
func Resolve(srcW, srcH int, s ImageSettings) ResizeStrategy {
	width, hasWidth := s.Width()
	height, hasHeight := s.Height()

	if !hasWidth && !hasHeight {
		return NoOp()
	}

	switch s.Mode() {
	case ModeScaleNoUpscale:
		return resolveNoUpscale(srcW, srcH, width, hasWidth, height, hasHeight)
	case ModeStretch:
		if hasWidth && hasHeight {
			return ExplicitBox(width, height)
		}
	case ModeCrop:
		if hasWidth && hasHeight {
			// height/width < srcH/srcW
			if int64(height)*int64(srcW) < int64(srcH)*int64(width) {
				return FitWidth(width)
			}
			return FitHeight(height)
		}
	}

	switch {
	case hasWidth && hasHeight:
		if srcH >= srcW {
			return FitHeight(height)
		}
		return FitWidth(width)
	case hasWidth:
		return FitWidth(width)
	default:
		return FitHeight(height)
	}
}

func resolveNoUpscale(srcW, srcH, width int, hasWidth bool, height int, hasHeight bool) ResizeStrategy {
	switch {
	case hasWidth && !hasHeight:
		if width >= srcW {
			return NoOp()
		}
		return FitWidth(width)
	case hasHeight && !hasWidth:
		if height >= srcH {
			return NoOp()
		}
		return FitHeight(height)
	}

	widthSmaller := width < srcW
	heightSmaller := height < srcH
	switch {
	case widthSmaller && heightSmaller:
		if width > height || srcW > srcH {
			return FitWidth(width)
		}
		return FitHeight(height)
	case widthSmaller:
		return FitWidth(width)
	case heightSmaller:
		return FitHeight(height)
	default:
		return NoOp()
	}
}

// CropRectangle 裁剪区域，坐标相对于中间图左上角
type CropRectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts to an image.Rectangle anchored at origin.
func (c CropRectangle) Rect(origin image.Point) image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height).Add(origin)
}

// ResolveCrop 计算裁剪矩形
//
// 仅在 Crop 模式且宽高都给定时返回 true。请求尺寸超过中间图时按中间图尺寸截断。
func ResolveCrop(interW, interH int, s ImageSettings) (CropRectangle, bool) {
	width, hasWidth := s.Width()
	height, hasHeight := s.Height()
	if s.Mode() != ModeCrop || !hasWidth || !hasHeight {
		return CropRectangle{}, false
	}

	width = min(width, interW)
	height = min(height, interH)
	x, y := CropPosition(interW, interH, width, height, s.Gravity())
	return CropRectangle{X: x, Y: y, Width: width, Height: height}, true
}
