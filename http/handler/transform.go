package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/leeforge/imagekit/cache"
	"github.com/leeforge/imagekit/http/binding"
	"github.com/leeforge/imagekit/http/responder"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/media/processor"
)

type modeParam struct{ processor.Mode }

func (m *modeParam) UnmarshalQuery(value string) error {
	mode, err := processor.ParseMode(value)
	if err != nil {
		return err
	}
	m.Mode = mode
	return nil
}

type gravityParam struct{ processor.Gravity }

func (g *gravityParam) UnmarshalQuery(value string) error {
	gravity, err := processor.ParseGravity(value)
	if err != nil {
		return err
	}
	g.Gravity = gravity
	return nil
}

// TransformQuery /v1/transform 的查询参数
type TransformQuery struct {
	Width   int          `query:"w" validate:"gte=0"`
	Height  int          `query:"h" validate:"gte=0"`
	Mode    modeParam    `query:"mode"`
	Gravity gravityParam `query:"gravity"`
	Quality *float64     `query:"q" validate:"omitempty,gte=0,lte=1"`
	Format  string       `query:"format" validate:"omitempty,alphanum,max=8"`
}

// Settings 转换为 ImageSettings
func (q TransformQuery) Settings() (processor.ImageSettings, error) {
	opts := []processor.SettingsOption{
		processor.WithMode(q.Mode.Mode),
		processor.WithGravity(q.Gravity.Gravity),
	}
	if q.Width > 0 {
		opts = append(opts, processor.WithWidth(q.Width))
	}
	if q.Height > 0 {
		opts = append(opts, processor.WithHeight(q.Height))
	}
	if q.Quality != nil {
		opts = append(opts, processor.WithQuality(*q.Quality))
	}
	return processor.NewImageSettings(opts...)
}

func (h *Handler) transform(w http.ResponseWriter, r *http.Request) {
	var query TransformQuery
	if err := binding.Query(r, &query); err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}
	settings, err := query.Settings()
	if err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}
	format := strings.ToLower(query.Format)
	if format == "" {
		format = h.cfg.DefaultFormat
	}

	body, err := binding.Body(r)
	if err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}

	ctx := r.Context()
	log := logging.FromContext(ctx)
	key := cache.Key(format, settings, body)

	cached, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		log.Warn("transform.cache.get_failed", zap.Error(err))
	}
	if ok {
		if e, valid := unmarshalEntry(cached); valid {
			writeImage(w, e, "HIT")
			return
		}
		log.Warn("transform.cache.corrupt_entry", zap.String("key", key))
	}

	res, err := h.transformer.TransformBytes(ctx, format, body, settings)
	if err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}

	e := entryFromResult(res)
	if err := h.cache.Set(ctx, key, e.marshal(), h.cfg.CacheTTL); err != nil {
		log.Warn("transform.cache.set_failed", zap.Error(err))
	}
	writeImage(w, e, "MISS")
}

func writeImage(w http.ResponseWriter, e entry, cacheStatus string) {
	header := w.Header()
	header.Set("Content-Type", e.MediaType)
	header.Set("Content-Length", strconv.Itoa(len(e.Data)))
	header.Set("X-Image-Width", strconv.Itoa(e.Width))
	header.Set("X-Image-Height", strconv.Itoa(e.Height))
	header.Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Data)
}
