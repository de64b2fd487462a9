package processor

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		settings   ImageSettings
		want       ResizeStrategy
	}{
		{"nothing set", 800, 600, MustImageSettings(), NoOp()},
		{"quality only", 800, 600, MustImageSettings(WithQuality(0.5)), NoOp()},
		{"mode only", 800, 600, MustImageSettings(WithMode(ModeCrop)), NoOp()},

		{"no upscale width larger", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(1000)), NoOp()},
		{"no upscale width equal", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(800)), NoOp()},
		{"no upscale width smaller", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(400)), FitWidth(400)},
		{"no upscale height larger", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithHeight(700)), NoOp()},
		{"no upscale height smaller", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithHeight(300)), FitHeight(300)},
		{"no upscale landscape box", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(400), WithHeight(300)), FitWidth(400)},
		{"no upscale portrait box landscape source", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(300), WithHeight(400)), FitWidth(300)},
		{"no upscale portrait box portrait source", 600, 800, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(300), WithHeight(400)), FitHeight(400)},
		{"no upscale square tie", 500, 500, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(300), WithHeight(300)), FitHeight(300)},
		{"no upscale only height smaller", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(1000), WithHeight(300)), FitHeight(300)},
		{"no upscale only width smaller", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(400), WithHeight(900)), FitWidth(400)},
		{"no upscale neither smaller", 800, 600, MustImageSettings(WithMode(ModeScaleNoUpscale), WithWidth(1000), WithHeight(1000)), NoOp()},

		{"stretch both", 800, 600, MustImageSettings(WithMode(ModeStretch), WithWidth(100), WithHeight(100)), ExplicitBox(100, 100)},
		{"stretch width only", 800, 600, MustImageSettings(WithMode(ModeStretch), WithWidth(100)), FitWidth(100)},

		{"crop wide request", 400, 400, MustImageSettings(WithMode(ModeCrop), WithWidth(100), WithHeight(50)), FitWidth(100)},
		{"crop tall request", 400, 400, MustImageSettings(WithMode(ModeCrop), WithWidth(50), WithHeight(100)), FitHeight(100)},
		{"crop equal ratio", 400, 200, MustImageSettings(WithMode(ModeCrop), WithWidth(100), WithHeight(50)), FitHeight(50)},
		{"crop height only", 400, 200, MustImageSettings(WithMode(ModeCrop), WithHeight(50)), FitHeight(50)},

		{"upscale width only", 800, 600, MustImageSettings(WithWidth(1600)), FitWidth(1600)},
		{"upscale height only", 800, 600, MustImageSettings(WithHeight(1200)), FitHeight(1200)},
		{"upscale both landscape", 800, 600, MustImageSettings(WithWidth(100), WithHeight(100)), FitWidth(100)},
		{"upscale both portrait", 600, 800, MustImageSettings(WithWidth(100), WithHeight(100)), FitHeight(100)},
		{"upscale both square", 500, 500, MustImageSettings(WithWidth(100), WithHeight(200)), FitHeight(200)},
		{"explicit upscale mode", 800, 600, MustImageSettings(WithMode(ModeScaleWithUpscale), WithWidth(100), WithHeight(100)), FitWidth(100)},
		{"fit height mode falls through", 800, 600, MustImageSettings(WithMode(ModeFitHeight), WithWidth(100), WithHeight(100)), FitWidth(100)},
		{"fit width mode falls through", 600, 800, MustImageSettings(WithMode(ModeFitWidth), WithWidth(100), WithHeight(100)), FitHeight(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.srcW, tt.srcH, tt.settings))
		})
	}
}

func TestTargetSizeRounding(t *testing.T) {
	tests := []struct {
		strategy     ResizeStrategy
		srcW, srcH   int
		wantW, wantH int
	}{
		{FitWidth(2), 3, 2, 2, 1},          // 1.333
		{FitWidth(2), 4, 3, 2, 2},          // 1.5 rounds up
		{FitWidth(123), 400, 300, 123, 92}, // 92.25
		{FitHeight(100), 400, 300, 133, 100},
		{FitHeight(3), 5, 2, 8, 3},     // 7.5 rounds up
		{FitWidth(10), 1000, 1, 10, 1}, // 0.01 clamps to 1
		{ExplicitBox(7, 9), 100, 100, 7, 9},
		{NoOp(), 640, 480, 640, 480},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			w, h := tt.strategy.TargetSize(tt.srcW, tt.srcH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestFitWidthKeepsRequestedWidth(t *testing.T) {
	for srcW := 1; srcW <= 60; srcW += 7 {
		for srcH := 1; srcH <= 60; srcH += 5 {
			for w := 1; w <= 90; w += 11 {
				gotW, gotH := FitWidth(w).TargetSize(srcW, srcH)
				exact := float64(w) * float64(srcH) / float64(srcW)
				want := max(int(exact+0.5), 1)
				require.Equal(t, w, gotW)
				require.Equal(t, want, gotH, "w=%d src=%dx%d", w, srcW, srcH)
			}
		}
	}
}

func TestResolveCrop(t *testing.T) {
	s := MustImageSettings(WithMode(ModeCrop), WithWidth(100), WithHeight(50))

	strategy := Resolve(400, 400, s)
	require.Equal(t, FitWidth(100), strategy)
	interW, interH := strategy.TargetSize(400, 400)
	assert.Equal(t, 100, interW)
	assert.Equal(t, 100, interH)

	rect, ok := ResolveCrop(interW, interH, s)
	require.True(t, ok)
	assert.Equal(t, CropRectangle{X: 0, Y: 25, Width: 100, Height: 50}, rect)
	assert.Equal(t, image.Rect(10, 35, 110, 85), rect.Rect(image.Pt(10, 10)))

	_, ok = ResolveCrop(100, 100, MustImageSettings(WithMode(ModeCrop), WithWidth(100)))
	assert.False(t, ok)
	_, ok = ResolveCrop(100, 100, MustImageSettings(WithWidth(100), WithHeight(50)))
	assert.False(t, ok)
}

func TestCropNeverExceedsIntermediate(t *testing.T) {
	for srcW := 1; srcW <= 50; srcW += 3 {
		for srcH := 1; srcH <= 50; srcH += 4 {
			for w := 1; w <= 40; w += 6 {
				for h := 1; h <= 40; h += 5 {
					s := MustImageSettings(WithMode(ModeCrop), WithWidth(w), WithHeight(h))
					interW, interH := Resolve(srcW, srcH, s).TargetSize(srcW, srcH)
					rect, ok := ResolveCrop(interW, interH, s)
					require.True(t, ok)
					require.LessOrEqual(t, rect.X+rect.Width, interW)
					require.LessOrEqual(t, rect.Y+rect.Height, interH)
					require.Equal(t, w, rect.Width, "src=%dx%d box=%dx%d", srcW, srcH, w, h)
					require.Equal(t, h, rect.Height, "src=%dx%d box=%dx%d", srcW, srcH, w, h)
				}
			}
		}
	}
}

func TestCropPosition(t *testing.T) {
	tests := []struct {
		gravity Gravity
		x, y    int
	}{
		{GravityCenter, 50, 25},
		{GravityNorth, 50, 0},
		{GravityNorthEast, 100, 0},
		{GravityEast, 100, 25},
		{GravitySouthEast, 100, 50},
		{GravitySouth, 50, 50},
		{GravitySouthWest, 0, 50},
		{GravityWest, 0, 25},
		{GravityNorthWest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.gravity.String(), func(t *testing.T) {
			x, y := CropPosition(300, 150, 200, 100, tt.gravity)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestCropPositionBounds(t *testing.T) {
	sizes := []int{1, 2, 3, 7, 10, 33}
	for g := GravityCenter; g <= GravityNorthWest; g++ {
		for _, srcW := range sizes {
			for _, srcH := range sizes {
				for tw := 1; tw <= srcW; tw++ {
					for th := 1; th <= srcH; th++ {
						x, y := CropPosition(srcW, srcH, tw, th, g)
						require.GreaterOrEqual(t, x, 0)
						require.GreaterOrEqual(t, y, 0)
						require.LessOrEqual(t, x, srcW-tw, "%s %dx%d in %dx%d", g, tw, th, srcW, srcH)
						require.LessOrEqual(t, y, srcH-th)
					}
				}
			}
		}
	}

	xw, _ := CropPosition(90, 10, 30, 10, GravityWest)
	xe, _ := CropPosition(90, 10, 30, 10, GravityEast)
	assert.Equal(t, 0, xw)
	assert.Equal(t, 60, xe)

	_, yn := CropPosition(10, 90, 10, 30, GravityNorth)
	_, ys := CropPosition(10, 90, 10, 30, GravitySouth)
	assert.Equal(t, 0, yn)
	assert.Equal(t, 60, ys)
}

func TestCropPositionPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { CropPosition(10, 10, 20, 5, GravityCenter) })
	assert.Panics(t, func() { CropPosition(10, 10, 5, 20, GravityCenter) })
	assert.Panics(t, func() { CropPosition(10, 10, 0, 5, GravityCenter) })
	assert.Panics(t, func() { CropPosition(10, 10, 5, -1, GravityCenter) })
}
