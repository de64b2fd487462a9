package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/imagekit/errors"
)

func TestNewImageSettingsQuality(t *testing.T) {
	tests := []struct {
		name    string
		quality float64
		wantErr bool
	}{
		{"default", DefaultQuality, false},
		{"zero", 0, false},
		{"one", 1, false},
		{"above range", 1.5, true},
		{"negative", -0.1, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewImageSettings(WithQuality(tt.quality))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidArgument)
				assert.Equal(t, "quality", errors.FromError(err).Details["field"])
				return
			}
			require.NoError(t, err)
			q, ok := s.Quality()
			assert.True(t, ok)
			assert.Equal(t, tt.quality, q)
		})
	}
}

func TestNewImageSettingsRejectsBadValues(t *testing.T) {
	_, err := NewImageSettings(WithWidth(-1))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = NewImageSettings(WithHeight(-20))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = NewImageSettings(WithMode(Mode(42)))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = NewImageSettings(WithGravity(Gravity(9)))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestImageSettingsAccessors(t *testing.T) {
	empty := MustImageSettings()
	assert.False(t, empty.HasSettings())
	assert.Equal(t, ModeUnspecified, empty.Mode())
	assert.Equal(t, ModeScaleWithUpscale, empty.EffectiveMode())
	assert.Equal(t, GravityCenter, empty.Gravity())
	assert.Equal(t, 0.85, empty.EffectiveQuality(DefaultQuality))
	_, ok := empty.MaximumDimension()
	assert.False(t, ok)

	widthOnly := MustImageSettings(WithWidth(300))
	assert.True(t, widthOnly.HasSettings())
	_, ok = widthOnly.MaximumDimension()
	assert.False(t, ok)
	_, ok = widthOnly.Height()
	assert.False(t, ok)

	qualityOnly := MustImageSettings(WithQuality(0.5))
	assert.True(t, qualityOnly.HasSettings())
	assert.Equal(t, 0.5, qualityOnly.EffectiveQuality(DefaultQuality))

	both := MustImageSettings(WithWidth(300), WithHeight(450), WithMode(ModeCrop), WithGravity(GravitySouthEast))
	maxDim, ok := both.MaximumDimension()
	assert.True(t, ok)
	assert.Equal(t, 450, maxDim)
	assert.Equal(t, ModeCrop, both.EffectiveMode())
}

func TestImageSettingsString(t *testing.T) {
	a := MustImageSettings(WithWidth(100), WithHeight(50), WithMode(ModeCrop), WithQuality(0.8))
	b := MustImageSettings(WithQuality(0.8), WithMode(ModeCrop), WithHeight(50), WithWidth(100))

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "w=100,h=50,mode=crop,g=center,q=0.8", a.String())
	assert.Equal(t, "w=0,h=0,mode=,g=center", MustImageSettings().String())
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":                   ModeUnspecified,
		"crop":               ModeCrop,
		"CROP":               ModeCrop,
		"scale-no-upscale":   ModeScaleNoUpscale,
		"ScaleNoUpscale":     ModeScaleNoUpscale,
		"scale_with_upscale": ModeScaleWithUpscale,
		"stretch":            ModeStretch,
		"Fit-Height":         ModeFitHeight,
		"fitwidth":           ModeFitWidth,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("zoom")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestParseGravity(t *testing.T) {
	tests := map[string]Gravity{
		"":           GravityCenter,
		"center":     GravityCenter,
		"N":          GravityNorth,
		"north_east": GravityNorthEast,
		"SouthWest":  GravitySouthWest,
		"w":          GravityWest,
		"nw":         GravityNorthWest,
	}
	for in, want := range tests {
		got, err := ParseGravity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseGravity("up")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"large", "medium", "small", "thumbnail"}, PresetNames())

	thumb, ok := Preset("Thumbnail")
	require.True(t, ok)
	w, _ := thumb.Width()
	h, _ := thumb.Height()
	q, _ := thumb.Quality()
	assert.Equal(t, 245, w)
	assert.Equal(t, 156, h)
	assert.Equal(t, ModeCrop, thumb.Mode())
	assert.Equal(t, 0.80, q)

	large, ok := Preset("large")
	require.True(t, ok)
	assert.Equal(t, ModeScaleNoUpscale, large.Mode())

	_, ok = Preset("huge")
	assert.False(t, ok)
}
