package processor

import "sort"

// 预设尺寸
var (
	// Thumbnail 缩略图，按比例填满后居中裁剪
	Thumbnail = MustImageSettings(WithWidth(245), WithHeight(156), WithMode(ModeCrop), WithQuality(0.80))
	// Small 小图，只缩小不放大
	Small = MustImageSettings(WithWidth(500), WithHeight(500), WithMode(ModeScaleNoUpscale), WithQuality(0.85))
	// Medium 中图
	Medium = MustImageSettings(WithWidth(750), WithHeight(750), WithMode(ModeScaleNoUpscale), WithQuality(0.85))
	// Large 大图
	Large = MustImageSettings(WithWidth(1000), WithHeight(1000), WithMode(ModeScaleNoUpscale), WithQuality(0.90))
)

var presets = map[string]ImageSettings{
	"thumbnail": Thumbnail,
	"small":     Small,
	"medium":    Medium,
	"large":     Large,
}

// Preset 按名称查找预设，名称不区分大小写
func Preset(name string) (ImageSettings, bool) {
	s, ok := presets[normalizeName(name)]
	return s, ok
}

// PresetNames 返回所有预设名称
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
