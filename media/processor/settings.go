package processor

import (
	"fmt"
	"strconv"
	"strings"

	validatorV10 "github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/leeforge/imagekit/errors"
)

// DefaultQuality is the encoder quality used when a request sets none.
const DefaultQuality = 0.85

// Mode 缩放模式
type Mode uint8

const (
	ModeUnspecified Mode = iota
	ModeScaleNoUpscale
	ModeScaleWithUpscale
	ModeCrop
	ModeStretch
	ModeFitHeight
	ModeFitWidth
)

var modeNames = [...]string{
	ModeUnspecified:      "",
	ModeScaleNoUpscale:   "scale-no-upscale",
	ModeScaleWithUpscale: "scale-with-upscale",
	ModeCrop:             "crop",
	ModeStretch:          "stretch",
	ModeFitHeight:        "fit-height",
	ModeFitWidth:         "fit-width",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Gravity 裁剪锚点
type Gravity uint8

const (
	GravityCenter Gravity = iota
	GravityNorth
	GravityNorthEast
	GravityEast
	GravitySouthEast
	GravitySouth
	GravitySouthWest
	GravityWest
	GravityNorthWest
)

var gravityNames = [...]string{
	GravityCenter:    "center",
	GravityNorth:     "north",
	GravityNorthEast: "northeast",
	GravityEast:      "east",
	GravitySouthEast: "southeast",
	GravitySouth:     "south",
	GravitySouthWest: "southwest",
	GravityWest:      "west",
	GravityNorthWest: "northwest",
}

var gravityShort = [...]string{"c", "n", "ne", "e", "se", "s", "sw", "w", "nw"}

func (g Gravity) String() string {
	if int(g) < len(gravityNames) {
		return gravityNames[g]
	}
	return "gravity(" + strconv.Itoa(int(g)) + ")"
}

var folder = cases.Fold()

// normalizeName folds case and drops separators so "Fit_Width", "fit-width"
// and "FitWidth" compare equal.
func normalizeName(s string) string {
	s = folder.String(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// ParseMode parses a mode name. The empty string yields ModeUnspecified.
func ParseMode(s string) (Mode, error) {
	name := normalizeName(s)
	if name == "" {
		return ModeUnspecified, nil
	}
	for i, candidate := range modeNames {
		if i > 0 && normalizeName(candidate) == name {
			return Mode(i), nil
		}
	}
	return ModeUnspecified, errors.NewInvalid("mode", s, "unknown resize mode")
}

// ParseGravity parses a compass gravity ("north", "NE", "south_west"...).
// The empty string yields GravityCenter.
func ParseGravity(s string) (Gravity, error) {
	name := normalizeName(s)
	if name == "" {
		return GravityCenter, nil
	}
	for i := range gravityNames {
		if gravityNames[i] == name || gravityShort[i] == name {
			return Gravity(i), nil
		}
	}
	return GravityCenter, errors.NewInvalid("gravity", s, "unknown gravity")
}

// ImageSettings describes one transform request. Values are immutable once
// built by NewImageSettings; a zero width, height or an absent quality means
// "not requested".
type ImageSettings struct {
	width      int
	height     int
	mode       Mode
	quality    float64
	hasQuality bool
	gravity    Gravity
}

// SettingsOption sets one field of ImageSettings.
type SettingsOption func(*settingsInput)

type settingsInput struct {
	Width   int      `validate:"gte=0"`
	Height  int      `validate:"gte=0"`
	Mode    Mode     `validate:"lte=6"`
	Gravity Gravity  `validate:"lte=8"`
	Quality *float64 `validate:"omitempty,gte=0,lte=1"`
}

func WithWidth(width int) SettingsOption {
	return func(in *settingsInput) { in.Width = width }
}

func WithHeight(height int) SettingsOption {
	return func(in *settingsInput) { in.Height = height }
}

func WithMode(mode Mode) SettingsOption {
	return func(in *settingsInput) { in.Mode = mode }
}

func WithQuality(quality float64) SettingsOption {
	return func(in *settingsInput) { in.Quality = &quality }
}

func WithGravity(gravity Gravity) SettingsOption {
	return func(in *settingsInput) { in.Gravity = gravity }
}

var validate = validatorV10.New()

// NewImageSettings builds validated settings. A quality outside [0, 1]
// (or NaN), a negative dimension or an unknown enum value fails with an
// invalid-argument error.
func NewImageSettings(opts ...SettingsOption) (ImageSettings, error) {
	var in settingsInput
	for _, opt := range opts {
		opt(&in)
	}

	if err := validate.Struct(&in); err != nil {
		if fieldErrors, ok := err.(validatorV10.ValidationErrors); ok && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return ImageSettings{}, errors.NewInvalid(strings.ToLower(fe.Field()), fe.Value(), validationReason(fe))
		}
		return ImageSettings{}, errors.WrapWithType(err, errors.ErrorTypeInvalid, "invalid image settings")
	}

	s := ImageSettings{
		width:   in.Width,
		height:  in.Height,
		mode:    in.Mode,
		gravity: in.Gravity,
	}
	if in.Quality != nil {
		s.quality = *in.Quality
		s.hasQuality = true
	}
	return s, nil
}

// MustImageSettings is NewImageSettings for values known to be valid.
func MustImageSettings(opts ...SettingsOption) ImageSettings {
	s, err := NewImageSettings(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func validationReason(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

func (s ImageSettings) Width() (int, bool)  { return s.width, s.width > 0 }
func (s ImageSettings) Height() (int, bool) { return s.height, s.height > 0 }
func (s ImageSettings) Mode() Mode          { return s.mode }
func (s ImageSettings) Gravity() Gravity    { return s.gravity }

func (s ImageSettings) Quality() (float64, bool) { return s.quality, s.hasQuality }

// HasSettings reports whether any of width, height or quality is present.
func (s ImageSettings) HasSettings() bool {
	return s.width > 0 || s.height > 0 || s.hasQuality
}

// MaximumDimension is the larger of width and height when both are present.
func (s ImageSettings) MaximumDimension() (int, bool) {
	if s.width <= 0 || s.height <= 0 {
		return 0, false
	}
	return max(s.width, s.height), true
}

// EffectiveMode is the mode with the default (ScaleWithUpscale) applied.
func (s ImageSettings) EffectiveMode() Mode {
	if s.mode == ModeUnspecified {
		return ModeScaleWithUpscale
	}
	return s.mode
}

// EffectiveQuality is the quality with fallback applied.
func (s ImageSettings) EffectiveQuality(fallback float64) float64 {
	if s.hasQuality {
		return s.quality
	}
	return fallback
}

// String renders a canonical form, stable across equal settings.
func (s ImageSettings) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "w=%d,h=%d,mode=%s,g=%s", s.width, s.height, s.mode, s.gravity)
	if s.hasQuality {
		b.WriteString(",q=")
		b.WriteString(strconv.FormatFloat(s.quality, 'f', -1, 64))
	}
	return b.String()
}
