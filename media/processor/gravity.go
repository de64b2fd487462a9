package processor

import "fmt"

// CropPosition 按 gravity 计算裁剪框左上角
//
// 要求 0 < targetW ≤ srcW 且 0 < targetH ≤ srcH，违反时 panic。
func CropPosition(srcW, srcH, targetW, targetH int, g Gravity) (x, y int) {
	if targetW <= 0 || targetH <= 0 || srcW < targetW || srcH < targetH {
		panic(fmt.Sprintf("processor: crop %dx%d out of %dx%d", targetW, targetH, srcW, srcH))
	}

	dx := srcW - targetW
	dy := srcH - targetH

	switch g {
	case GravityWest, GravitySouthWest, GravityNorthWest:
		x = 0
	case GravityEast, GravitySouthEast, GravityNorthEast:
		x = dx
	default:
		x = dx / 2
	}

	switch g {
	case GravityNorth, GravityNorthEast, GravityNorthWest:
		y = 0
	case GravitySouth, GravitySouthEast, GravitySouthWest:
		y = dy
	default:
		y = dy / 2
	}

	return x, y
}
